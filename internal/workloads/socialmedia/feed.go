package socialmedia

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"socialkv/internal/idgen"
	"socialkv/internal/keys"
	"socialkv/internal/models"
	"socialkv/internal/runner"
)

// FeedTest mixes post creation with feed reads, one write per four reads.
// The feed is recomputed from the global set on every read, so read cost
// grows with the number of posts.
type FeedTest struct {
	created atomic.Int64
}

func (t *FeedTest) Setup(ctx context.Context, env *runner.Env) error {
	if err := SeedUsers(ctx, env.Stores, NumUsers); err != nil {
		return err
	}
	for i := 0; i < NumPosts; i++ {
		p := models.Post{
			ID:        fmt.Sprintf("seed-post-%d", i),
			UserID:    UserID(i % NumUsers),
			Content:   "post content",
			Likes:     []string{},
			Comments:  []models.Comment{},
			CreatedAt: int64(i + 1),
		}
		if err := env.Stores.Posts.SavePost(ctx, p); err != nil {
			return err
		}
	}
	t.created.Store(NumPosts)
	return nil
}

func (t *FeedTest) Run(ctx context.Context, env *runner.Env, concurrency int, duration time.Duration) (*runner.Result, error) {
	rec := runner.NewRecorder()
	total := runner.Loop(ctx, concurrency, duration, rec, func(ctx context.Context, worker, iter int) error {
		userID := UserID((worker + iter) % NumUsers)
		if iter%5 == 0 {
			err := env.Stores.Posts.SavePost(ctx, models.Post{
				ID:        idgen.New(),
				UserID:    userID,
				Content:   "post content",
				Likes:     []string{},
				Comments:  []models.Comment{},
				CreatedAt: idgen.NowMillis(time.Now()),
			})
			if err == nil {
				t.created.Add(1)
			}
			return err
		}
		_, err := env.Stores.Posts.GetFeed(ctx, userID)
		return err
	})

	result := rec.Result(total)
	ok, err := t.verify(ctx, env)
	if err != nil {
		return nil, err
	}
	result.DataIntegrity = ok
	return result, nil
}

// verify checks that the feed is non-empty, newest first, and that every
// created post is reachable through the global index.
func (t *FeedTest) verify(ctx context.Context, env *runner.Env) (bool, error) {
	feed, err := env.Stores.Posts.GetFeed(ctx, UserID(0))
	if err != nil {
		return false, err
	}
	if len(feed) == 0 {
		return false, nil
	}
	for i := 1; i < len(feed); i++ {
		if feed[i-1].CreatedAt < feed[i].CreatedAt {
			return false, nil
		}
	}
	ids, err := env.KV.SMembers(ctx, keys.AllPosts)
	if err != nil {
		return false, err
	}
	return int64(len(ids)) == t.created.Load(), nil
}

// Teardown leaves the data in place for inspection; the next run resets
// the backend.
func (t *FeedTest) Teardown(ctx context.Context, env *runner.Env) error {
	return nil
}
