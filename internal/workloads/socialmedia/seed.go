// Package socialmedia benchmarks the post, like and friendship paths of
// the stores under concurrent load.
package socialmedia

import (
	"context"
	"fmt"

	"socialkv/internal/models"
	"socialkv/internal/store"
)

const (
	NumUsers     = 100
	PostsPerUser = 3
	NumPosts     = NumUsers * PostsPerUser
)

// UserID is the id of the i-th seeded user.
func UserID(i int) string { return fmt.Sprintf("user%d", i) }

// SeedUsers saves n users with ids user0..user{n-1}.
func SeedUsers(ctx context.Context, stores *store.Stores, n int) error {
	for i := 0; i < n; i++ {
		u := models.User{
			ID:       UserID(i),
			Nickname: fmt.Sprintf("user-%d", i),
			Phone:    fmt.Sprintf("+1%09d", i),
			FullName: fmt.Sprintf("Bench User %d", i),
			Role:     "user",
			Level:    1,
			Settings: models.DefaultSettings(),
		}
		if err := stores.Users.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
	}
	return nil
}
