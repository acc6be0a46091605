package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"socialkv/internal/database"
	"socialkv/internal/models"
	"socialkv/internal/store"
)

// clock is a manual time source that moves forward one millisecond per
// reading unless pinned.
type clock struct {
	mu     sync.Mutex
	now    time.Time
	pinned bool
}

func newClock() *clock {
	return &clock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	if !c.pinned {
		c.now = c.now.Add(time.Millisecond)
	}
	return t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *clock) Pin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = true
}

func newStores(t *testing.T, kv database.KV, opts ...store.Option) (*store.Stores, *clock) {
	t.Helper()
	c := newClock()
	opts = append([]store.Option{store.WithClock(c.Now)}, opts...)
	return store.New(kv, opts...), c
}

func strPtr(s string) *string { return &s }

func testUser(id, nickname, phone string) models.User {
	return models.User{
		ID:        id,
		Nickname:  nickname,
		Phone:     phone,
		Password:  "hash-" + id,
		FullName:  "User " + nickname,
		Role:      "user",
		Level:     1,
		CreatedAt: "2024-01-01T00:00:00Z",
		Settings:  models.DefaultSettings(),
	}
}

func saveUsers(t *testing.T, s *store.Stores, users ...models.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, s.Users.SaveUser(context.Background(), u))
	}
}

func TestNewUsesDefaults(t *testing.T) {
	ctx := context.Background()
	s := store.New(database.NewMemoryDriver())

	for i := 0; i < store.DefaultFeedLimit+3; i++ {
		require.NoError(t, s.Posts.SavePost(ctx, models.Post{ID: string(rune('a' + i)), UserID: "u1", CreatedAt: int64(i)}))
	}
	feed, err := s.Posts.GetFeed(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, feed, store.DefaultFeedLimit)
}
