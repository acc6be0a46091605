package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialkv/internal/database"
	"socialkv/internal/database/kvtest"
	"socialkv/internal/keylock"
	"socialkv/internal/models"
	"socialkv/internal/store"
)

func testPost(id, userID string, createdAt int64) models.Post {
	return models.Post{
		ID:           id,
		UserID:       userID,
		UserName:     "User " + userID,
		UserNickname: userID,
		Content:      "post " + id,
		Likes:        []string{},
		Comments:     []models.Comment{},
		CreatedAt:    createdAt,
	}
}

func savePosts(t *testing.T, s *store.Stores, posts ...models.Post) {
	t.Helper()
	for _, p := range posts {
		require.NoError(t, s.Posts.SavePost(context.Background(), p))
	}
}

func assertNewestFirst(t *testing.T, posts []models.Post) {
	t.Helper()
	for i := 1; i < len(posts); i++ {
		assert.GreaterOrEqual(t, posts[i-1].CreatedAt, posts[i].CreatedAt, "posts out of order at %d", i)
	}
}

func TestSaveAndGetPost(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	p := testPost("p1", "u1", 100)
	p.Image = strPtr("https://img.example/1.png")
	savePosts(t, s, p)

	got, ok, err := s.Posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok, err = s.Posts.GetPost(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.Posts.SavePost(ctx, models.Post{ID: "p2"}), store.ErrInvalidRequest)
}

func TestGetUserPostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	savePosts(t, s,
		testPost("p1", "u1", 100),
		testPost("p2", "u1", 300),
		testPost("p3", "u2", 200),
		testPost("p4", "u1", 200),
	)

	posts, err := s.Posts.GetUserPosts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"p2", "p4", "p1"}, postIDs(posts))

	posts, err = s.Posts.GetUserPosts(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFeedCap(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	for i := 0; i < 25; i++ {
		savePosts(t, s, testPost(fmt.Sprintf("p%02d", i), fmt.Sprintf("u%d", i%3), int64(1000+i)))
	}

	var first []string
	for _, viewer := range []string{"u0", "u1", "stranger"} {
		feed, err := s.Posts.GetFeed(ctx, viewer)
		require.NoError(t, err)
		require.Len(t, feed, 20)
		assertNewestFirst(t, feed)
		assert.Equal(t, "p24", feed[0].ID)
		assert.Equal(t, "p05", feed[19].ID)
		if first == nil {
			first = postIDs(feed)
		}
		assert.Equal(t, first, postIDs(feed), "feed must not depend on the viewer")
	}
}

func TestFeedTiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	savePosts(t, s, testPost("a", "u1", 5), testPost("c", "u2", 5), testPost("b", "u3", 5))

	feed, err := s.Posts.GetFeed(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, postIDs(feed))
}

func TestGetFeedPage(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	for i := 0; i < 25; i++ {
		savePosts(t, s, testPost(fmt.Sprintf("p%02d", i), "u1", int64(1000+i/2)))
	}

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, next, err := s.Posts.GetFeedPage(ctx, "u1", cursor, 10)
		require.NoError(t, err)
		assertNewestFirst(t, page)
		seen = append(seen, postIDs(page)...)
		pages++
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Equal(t, 3, pages)
	require.Len(t, seen, 25)
	assert.Equal(t, "p24", seen[0])
	assert.Equal(t, "p00", seen[24])
	unique := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 25)

	_, _, err := s.Posts.GetFeedPage(ctx, "u1", "garbage", 10)
	assert.ErrorIs(t, err, store.ErrInvalidRequest)
}

func TestLikePostToggleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	p := testPost("p1", "u1", 100)
	p.Likes = []string{"u9"}
	savePosts(t, s, p)

	liked, ok, err := s.Posts.LikePost(ctx, "p1", "u2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"u9", "u2"}, liked.Likes)

	unliked, ok, err := s.Posts.LikePost(ctx, "p1", "u2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"u9"}, unliked.Likes)

	stored, _, err := s.Posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.ElementsMatch(t, p.Likes, stored.Likes)

	_, ok, err = s.Posts.LikePost(ctx, "missing", "u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentLikesWithLocker(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver(), store.WithLocker(keylock.NewStriped(16)))
	savePosts(t, s, testPost("p1", "author", 100))

	const likers = 50
	var wg sync.WaitGroup
	for i := 0; i < likers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.Posts.LikePost(ctx, "p1", fmt.Sprintf("u%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	p, _, err := s.Posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, p.Likes, likers, "a serialized toggle never loses a like")
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	savePosts(t, s, testPost("p1", "u1", 100))

	_, ok, err := s.Posts.AddComment(ctx, "p1", models.Comment{UserID: "u2", Text: "first"})
	require.NoError(t, err)
	require.True(t, ok)
	got, ok, err := s.Posts.AddComment(ctx, "p1", models.Comment{ID: "c2", UserID: "u3", Text: "second", CreatedAt: 7})
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Text)
	assert.NotEmpty(t, got.Comments[0].ID)
	assert.NotZero(t, got.Comments[0].CreatedAt)
	assert.Equal(t, models.Comment{ID: "c2", UserID: "u3", Text: "second", CreatedAt: 7}, got.Comments[1])

	_, ok, err = s.Posts.AddComment(ctx, "missing", models.Comment{UserID: "u2", Text: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	savePosts(t, s, testPost("p1", "u1", 100), testPost("p2", "u1", 200))

	require.NoError(t, s.Posts.DeletePost(ctx, "p1"))
	_, ok, err := s.Posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
	posts, err := s.Posts.GetUserPosts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, postIDs(posts))
	feed, err := s.Posts.GetFeed(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, postIDs(feed))

	assert.ErrorIs(t, s.Posts.DeletePost(ctx, "p1"), store.ErrNotFound)
}

func TestSavePostPartialWrite(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(database.NewMemoryDriver())
	s, _ := newStores(t, faulty)

	faulty.FailOn(func(op, key string) bool { return op == "sadd" && key == "posts:all" })
	err := s.Posts.SavePost(ctx, testPost("p1", "u1", 100))
	assert.ErrorIs(t, err, database.ErrStorage)
	faulty.FailOn(nil)

	_, ok, err := s.Posts.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok, "record is written before the indexes")
	posts, err := s.Posts.GetUserPosts(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	feed, err := s.Posts.GetFeed(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, feed, "missing global index hides the post from the feed")

	assert.Equal(t, []string{"set post:p1", "sadd posts:user:u1", "sadd posts:all"}, faulty.Calls()[:3])
}

func postIDs(posts []models.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
