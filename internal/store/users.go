package store

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"socialkv/internal/keys"
	"socialkv/internal/models"
)

// Users is the user directory: the record under user:id:{id}, pointer keys
// for nickname, phone and email, and the users:all membership set.
type Users struct {
	base
}

// SaveUser writes the record, then the pointer keys, then the membership
// entry. It does not check uniqueness; callers must look the nickname and
// phone up first.
func (s *Users) SaveUser(ctx context.Context, u models.User) error {
	log := s.log().WithFields(logrus.Fields{"userId": u.ID, "nickname": u.Nickname})
	if u.ID == "" || u.Nickname == "" || u.Phone == "" {
		return ErrInvalidRequest
	}

	writes := []step{
		{"record", func() error { return setJSON(ctx, s.kv, keys.UserByID(u.ID), u) }},
		{"nickname index", func() error { return s.kv.Set(ctx, keys.UserByNickname(u.Nickname), u.ID) }},
		{"phone index", func() error { return s.kv.Set(ctx, keys.UserByPhone(u.Phone), u.ID) }},
	}
	if u.Email != nil && *u.Email != "" {
		email := *u.Email
		writes = append(writes, step{"email index", func() error { return s.kv.Set(ctx, keys.UserByEmail(email), u.ID) }})
	}
	writes = append(writes, step{"membership", func() error { return s.kv.SAdd(ctx, keys.AllUsers, u.ID) }})

	return runSteps(log, "save user", writes)
}

func (s *Users) GetUserByID(ctx context.Context, id string) (models.User, bool, error) {
	u, ok, err := s.getFull(ctx, id)
	return u.Public(), ok, err
}

func (s *Users) GetUserByNickname(ctx context.Context, nickname string) (models.User, bool, error) {
	return s.byPointer(ctx, keys.UserByNickname(nickname))
}

func (s *Users) GetUserByPhone(ctx context.Context, phone string) (models.User, bool, error) {
	return s.byPointer(ctx, keys.UserByPhone(phone))
}

func (s *Users) GetUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	return s.byPointer(ctx, keys.UserByEmail(email))
}

// GetCredentials returns the stored password hash. Only the login path
// should call it.
func (s *Users) GetCredentials(ctx context.Context, id string) (string, bool, error) {
	u, ok, err := s.getFull(ctx, id)
	if err != nil || !ok {
		return "", ok, err
	}
	return u.Password, true, nil
}

// UpdateUser merges patch over the stored record. The pointer indexes are
// not touched; UserPatch cannot change the indexed fields.
func (s *Users) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	unlock := s.lock(keys.UserByID(id))
	defer unlock()

	u, ok, err := s.getFull(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		s.log().WithField("userId", id).Debug("update user: not found")
		return models.User{}, ErrNotFound
	}
	updated := patch.Apply(u)
	if err := setJSON(ctx, s.kv, keys.UserByID(id), updated); err != nil {
		s.log().WithField("userId", id).WithError(err).Error("update user failed")
		return models.User{}, err
	}
	s.log().WithField("userId", id).Debug("user updated")
	return updated.Public(), nil
}

// GetAllUsers dereferences every member of users:all, ordered by id.
func (s *Users) GetAllUsers(ctx context.Context) ([]models.User, error) {
	all, err := loadAll[models.User](ctx, s.kv, keys.AllUsers, keys.UserByID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i] = all[i].Public()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// SearchUsers matches query case-insensitively as a substring of nickname
// or full name and returns at most the search limit, without ranking.
func (s *Users) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	all, err := s.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	out := make([]models.User, 0)
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Nickname), q) || strings.Contains(strings.ToLower(u.FullName), q) {
			out = append(out, u)
			if len(out) == s.opts.searchLimit {
				break
			}
		}
	}
	s.log().WithFields(logrus.Fields{"query": query, "found": len(out)}).Debug("search users")
	return out, nil
}

func (s *Users) getFull(ctx context.Context, id string) (models.User, bool, error) {
	if id == "" {
		return models.User{}, false, nil
	}
	return getJSON[models.User](ctx, s.kv, keys.UserByID(id))
}

// byPointer resolves a pointer key to an id and the id to the record. A
// pointer to a missing record is reported as absence.
func (s *Users) byPointer(ctx context.Context, pointer string) (models.User, bool, error) {
	id, ok, err := s.kv.Get(ctx, pointer)
	if err != nil || !ok || id == "" {
		return models.User{}, false, err
	}
	return s.GetUserByID(ctx, id)
}
