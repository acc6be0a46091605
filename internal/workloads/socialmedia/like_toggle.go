package socialmedia

import (
	"context"
	"sort"
	"time"

	"socialkv/internal/models"
	"socialkv/internal/runner"
)

const hotPostID = "hot-post"

// LikeToggleTest has every worker toggle its own like on one shared post.
// Each toggle rewrites the whole record, so without a serializing locker
// concurrent toggles overwrite each other and integrity fails.
type LikeToggleTest struct {
	toggles []int
}

func (t *LikeToggleTest) Setup(ctx context.Context, env *runner.Env) error {
	if err := SeedUsers(ctx, env.Stores, 1); err != nil {
		return err
	}
	return env.Stores.Posts.SavePost(ctx, models.Post{
		ID:        hotPostID,
		UserID:    UserID(0),
		Content:   "like me",
		Likes:     []string{},
		Comments:  []models.Comment{},
		CreatedAt: time.Now().UnixMilli(),
	})
}

func (t *LikeToggleTest) Run(ctx context.Context, env *runner.Env, concurrency int, duration time.Duration) (*runner.Result, error) {
	// One slot per worker; each goroutine only touches its own.
	t.toggles = make([]int, concurrency)
	rec := runner.NewRecorder()
	total := runner.Loop(ctx, concurrency, duration, rec, func(ctx context.Context, worker, iter int) error {
		_, _, err := env.Stores.Posts.LikePost(ctx, hotPostID, UserID(worker))
		if err == nil {
			t.toggles[worker]++
		}
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

// verify expects exactly the workers with an odd number of toggles to
// have their like recorded.
func (t *LikeToggleTest) verify(ctx context.Context, env *runner.Env) (bool, error) {
	post, found, err := env.Stores.Posts.GetPost(ctx, hotPostID)
	if err != nil || !found {
		return false, err
	}
	var want []string
	for worker, n := range t.toggles {
		if n%2 == 1 {
			want = append(want, UserID(worker))
		}
	}
	got := append([]string(nil), post.Likes...)
	sort.Strings(want)
	sort.Strings(got)
	if len(want) != len(got) {
		return false, nil
	}
	for i := range want {
		if want[i] != got[i] {
			return false, nil
		}
	}
	return true, nil
}

func (t *LikeToggleTest) Teardown(ctx context.Context, env *runner.Env) error {
	t.toggles = nil
	return nil
}
