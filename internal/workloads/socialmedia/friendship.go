package socialmedia

import (
	"context"
	"time"

	"socialkv/internal/models"
	"socialkv/internal/runner"
)

// FriendshipTest sends and accepts friend requests between seeded users
// from many workers at once, then checks that every friendship is
// recorded on both sides.
type FriendshipTest struct{}

func (t *FriendshipTest) Setup(ctx context.Context, env *runner.Env) error {
	return SeedUsers(ctx, env.Stores, NumUsers)
}

func (t *FriendshipTest) Run(ctx context.Context, env *runner.Env, concurrency int, duration time.Duration) (*runner.Result, error) {
	rec := runner.NewRecorder()
	total := runner.Loop(ctx, concurrency, duration, rec, func(ctx context.Context, worker, iter int) error {
		from := (worker*7 + iter) % NumUsers
		to := (from + 1 + iter%(NumUsers-1)) % NumUsers
		req, err := env.Stores.Graph.SendFriendRequest(ctx, models.FriendRequest{
			FromUserID: UserID(from),
			ToUserID:   UserID(to),
		})
		if err != nil {
			return err
		}
		_, err = env.Stores.Graph.AcceptFriendRequest(ctx, req.ID)
		return err
	})

	result := rec.Result(total)
	ok := true
	for i := 0; i < NumUsers; i++ {
		broken, err := env.Stores.Graph.AsymmetricFriends(ctx, UserID(i))
		if err != nil {
			return nil, err
		}
		if len(broken) > 0 {
			env.Log.WithField("userId", UserID(i)).Warnf("asymmetric friendships: %v", broken)
			ok = false
		}
	}
	result.DataIntegrity = ok
	return result, nil
}

func (t *FriendshipTest) Teardown(ctx context.Context, env *runner.Env) error {
	return nil
}
