package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"socialkv/internal/idgen"
	"socialkv/internal/keys"
	"socialkv/internal/models"
)

// Posts keeps post:{id} records indexed by author (posts:user:{id}) and
// globally (posts:all).
type Posts struct {
	base
}

func (s *Posts) SavePost(ctx context.Context, p models.Post) error {
	if p.ID == "" || p.UserID == "" {
		return ErrInvalidRequest
	}
	log := s.log().WithFields(logrus.Fields{"postId": p.ID, "userId": p.UserID})
	return runSteps(log, "save post", []step{
		{"record", func() error { return setJSON(ctx, s.kv, keys.Post(p.ID), p) }},
		{"author index", func() error { return s.kv.SAdd(ctx, keys.UserPosts(p.UserID), p.ID) }},
		{"global index", func() error { return s.kv.SAdd(ctx, keys.AllPosts, p.ID) }},
	})
}

func (s *Posts) GetPost(ctx context.Context, id string) (models.Post, bool, error) {
	if id == "" {
		return models.Post{}, false, nil
	}
	return getJSON[models.Post](ctx, s.kv, keys.Post(id))
}

// DeletePost drops the index entries before the record so a failure part
// way never leaves an index pointing at nothing.
func (s *Posts) DeletePost(ctx context.Context, id string) error {
	p, ok, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	log := s.log().WithFields(logrus.Fields{"postId": id, "userId": p.UserID})
	return runSteps(log, "delete post", []step{
		{"global index", func() error { return s.kv.SRem(ctx, keys.AllPosts, id) }},
		{"author index", func() error { return s.kv.SRem(ctx, keys.UserPosts(p.UserID), id) }},
		{"record", func() error { return s.kv.Del(ctx, keys.Post(id)) }},
	})
}

// GetUserPosts lists the author's posts, newest first.
func (s *Posts) GetUserPosts(ctx context.Context, userID string) ([]models.Post, error) {
	posts, err := loadAll[models.Post](ctx, s.kv, keys.UserPosts(userID), keys.Post)
	if err != nil {
		return nil, err
	}
	sortPosts(posts)
	return posts, nil
}

// GetFeed returns the most recent posts from every author, capped at the
// feed limit. userID does not filter anything yet.
func (s *Posts) GetFeed(ctx context.Context, userID string) ([]models.Post, error) {
	posts, _, err := s.GetFeedPage(ctx, userID, "", s.opts.feedLimit)
	return posts, err
}

// GetFeedPage walks the global feed in pages. An empty cursor starts at the
// newest post; the returned cursor is empty once the feed is exhausted.
func (s *Posts) GetFeedPage(ctx context.Context, userID, cursor string, limit int) ([]models.Post, string, error) {
	if limit <= 0 {
		limit = s.opts.feedLimit
	}
	var (
		afterAt int64
		afterID string
	)
	if cursor != "" {
		var err error
		if afterAt, afterID, err = decodeCursor(cursor); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	posts, err := loadAll[models.Post](ctx, s.kv, keys.AllPosts, keys.Post)
	if err != nil {
		return nil, "", err
	}
	sortPosts(posts)

	start := 0
	if cursor != "" {
		start = sort.Search(len(posts), func(i int) bool {
			return newer(afterAt, afterID, posts[i].CreatedAt, posts[i].ID)
		})
	}
	page := posts[start:]
	next := ""
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}
	s.log().WithFields(logrus.Fields{"userId": userID, "returned": len(page)}).Debug("feed page")
	return page, next, nil
}

// LikePost toggles userID in the post's like set. Without a locker two
// concurrent toggles on one post can lose an update.
func (s *Posts) LikePost(ctx context.Context, postID, userID string) (models.Post, bool, error) {
	unlock := s.lock(keys.Post(postID))
	defer unlock()

	p, ok, err := s.GetPost(ctx, postID)
	if err != nil || !ok {
		return models.Post{}, false, err
	}
	if p.LikedBy(userID) {
		likes := p.Likes[:0:0]
		for _, id := range p.Likes {
			if id != userID {
				likes = append(likes, id)
			}
		}
		p.Likes = likes
	} else {
		p.Likes = append(p.Likes, userID)
	}
	if err := setJSON(ctx, s.kv, keys.Post(postID), p); err != nil {
		s.log().WithField("postId", postID).WithError(err).Error("like post failed")
		return models.Post{}, false, err
	}
	return p, true, nil
}

// AddComment appends c to the post, filling its id and timestamp if unset.
func (s *Posts) AddComment(ctx context.Context, postID string, c models.Comment) (models.Post, bool, error) {
	unlock := s.lock(keys.Post(postID))
	defer unlock()

	p, ok, err := s.GetPost(ctx, postID)
	if err != nil || !ok {
		return models.Post{}, false, err
	}
	if c.ID == "" {
		c.ID = idgen.New()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = s.nowMillis()
	}
	p.Comments = append(p.Comments, c)
	if err := setJSON(ctx, s.kv, keys.Post(postID), p); err != nil {
		s.log().WithField("postId", postID).WithError(err).Error("add comment failed")
		return models.Post{}, false, err
	}
	return p, true, nil
}

func sortPosts(posts []models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		return newer(posts[i].CreatedAt, posts[i].ID, posts[j].CreatedAt, posts[j].ID)
	})
}

func encodeCursor(at int64, id string) string {
	return strconv.FormatInt(at, 10) + "_" + id
}

func decodeCursor(cursor string) (int64, string, error) {
	at, id, ok := strings.Cut(cursor, "_")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("malformed cursor %q", cursor)
	}
	ms, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed cursor %q", cursor)
	}
	return ms, id, nil
}
