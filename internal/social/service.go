// Package social implements the user-facing operations on top of the
// stores: registration with uniqueness pre-checks, login, and the activity
// calls that also keep presence current.
package social

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"socialkv/internal/idgen"
	"socialkv/internal/logging"
	"socialkv/internal/models"
	"socialkv/internal/store"
)

type Service struct {
	stores *store.Stores
	hasher Hasher
	log    logrus.FieldLogger
	now    func() time.Time
}

type Option func(*Service)

func WithHasher(h Hasher) Option { return func(s *Service) { s.hasher = h } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(stores *store.Stores, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		hasher: BcryptHasher{},
		log:    logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	FullName string
	Phone    string
	Nickname string
	Email    string
	Password string
}

// LoginInput identifies the user by phone, else nickname, else email.
type LoginInput struct {
	Phone    string
	Nickname string
	Email    string
	Password string
}

// Register checks nickname, phone and email for collisions before any
// write. Two concurrent registrations of the same nickname can both pass
// the check.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" || in.Phone == "" || in.Nickname == "" || in.Password == "" {
		return models.User{}, invalid("fullName, phone, nickname and password are required")
	}
	log := s.log.WithFields(logrus.Fields{"nickname": in.Nickname, "phone": in.Phone})

	checks := []struct {
		field, value string
		lookup       func(context.Context, string) (models.User, bool, error)
	}{
		{"nickname", in.Nickname, s.stores.Users.GetUserByNickname},
		{"phone", in.Phone, s.stores.Users.GetUserByPhone},
		{"email", in.Email, s.stores.Users.GetUserByEmail},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		_, taken, err := c.lookup(ctx, c.value)
		if err != nil {
			return models.User{}, err
		}
		if taken {
			log.WithField("field", c.field).Info("registration rejected: already taken")
			return models.User{}, &ConflictError{Field: c.field, Value: c.value}
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}
	now := s.now()
	u := models.User{
		ID:             idgen.New(),
		Nickname:       in.Nickname,
		Phone:          in.Phone,
		Password:       hash,
		FullName:       in.FullName,
		Role:           "user",
		TestedFeatures: []string{},
		Achievements:   []string{},
		TesterLevel:    1,
		Level:          1,
		CreatedAt:      now.UTC().Format(time.RFC3339),
		LastActive:     idgen.NowMillis(now),
		Settings:       models.DefaultSettings(),
	}
	if in.Email != "" {
		email := in.Email
		u.Email = &email
	}
	if err := s.stores.Users.SaveUser(ctx, u); err != nil {
		return models.User{}, err
	}
	log.WithField("userId", u.ID).Info("user registered")
	return u.Public(), nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (models.User, error) {
	var (
		u   models.User
		ok  bool
		err error
	)
	switch {
	case in.Phone != "":
		u, ok, err = s.stores.Users.GetUserByPhone(ctx, in.Phone)
	case in.Nickname != "":
		u, ok, err = s.stores.Users.GetUserByNickname(ctx, in.Nickname)
	case in.Email != "":
		u, ok, err = s.stores.Users.GetUserByEmail(ctx, in.Email)
	default:
		return models.User{}, invalid("phone, nickname or email is required")
	}
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrNotFound
	}

	hash, ok, err := s.stores.Users.GetCredentials(ctx, u.ID)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrNotFound
	}
	if err := s.hasher.Compare(hash, in.Password); err != nil {
		s.log.WithField("userId", u.ID).Info("login rejected")
		return models.User{}, err
	}

	last := idgen.NowMillis(s.now())
	updated, err := s.stores.Users.UpdateUser(ctx, u.ID, models.UserPatch{LastActive: &last})
	if err != nil {
		return models.User{}, err
	}
	s.touch(ctx, u.ID)
	s.log.WithField("userId", u.ID).Info("user logged in")
	return updated, nil
}

// UpdateProfile applies patch to the caller's own record.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch models.UserPatch) (models.User, error) {
	u, err := s.stores.Users.UpdateUser(ctx, userID, patch)
	if err != nil {
		return models.User{}, err
	}
	s.touch(ctx, userID)
	return u, nil
}

type PostInput struct {
	Content string
	Image   string
}

// CreatePost copies the author's display fields onto the post.
func (s *Service) CreatePost(ctx context.Context, userID string, in PostInput) (models.Post, error) {
	if strings.TrimSpace(in.Content) == "" && in.Image == "" {
		return models.Post{}, invalid("post needs content or an image")
	}
	author, err := s.requireUser(ctx, userID)
	if err != nil {
		return models.Post{}, err
	}
	p := models.Post{
		ID:           idgen.New(),
		UserID:       author.ID,
		UserName:     author.FullName,
		UserNickname: author.Nickname,
		UserAvatar:   author.AvatarURL,
		Content:      in.Content,
		Likes:        []string{},
		Comments:     []models.Comment{},
		CreatedAt:    idgen.NowMillis(s.now()),
	}
	if in.Image != "" {
		img := in.Image
		p.Image = &img
	}
	if err := s.stores.Posts.SavePost(ctx, p); err != nil {
		return models.Post{}, err
	}
	s.touch(ctx, userID)
	return p, nil
}

func (s *Service) ToggleLike(ctx context.Context, userID, postID string) (models.Post, error) {
	p, ok, err := s.stores.Posts.LikePost(ctx, postID, userID)
	if err != nil {
		return models.Post{}, err
	}
	if !ok {
		return models.Post{}, ErrNotFound
	}
	s.touch(ctx, userID)
	return p, nil
}

func (s *Service) Comment(ctx context.Context, userID, postID, text string) (models.Post, error) {
	if strings.TrimSpace(text) == "" {
		return models.Post{}, invalid("comment text is empty")
	}
	p, ok, err := s.stores.Posts.AddComment(ctx, postID, models.Comment{
		ID:        idgen.New(),
		UserID:    userID,
		Text:      text,
		CreatedAt: idgen.NowMillis(s.now()),
	})
	if err != nil {
		return models.Post{}, err
	}
	if !ok {
		return models.Post{}, ErrNotFound
	}
	s.touch(ctx, userID)
	return p, nil
}

func (s *Service) SendFriendRequest(ctx context.Context, fromID, toID string) (models.FriendRequest, error) {
	if fromID == toID {
		return models.FriendRequest{}, invalid("cannot befriend yourself")
	}
	for _, id := range []string{fromID, toID} {
		if _, err := s.requireUser(ctx, id); err != nil {
			return models.FriendRequest{}, err
		}
	}
	req, err := s.stores.Graph.SendFriendRequest(ctx, models.FriendRequest{
		FromUserID: fromID,
		ToUserID:   toID,
		CreatedAt:  idgen.NowMillis(s.now()),
	})
	if err != nil {
		return models.FriendRequest{}, err
	}
	s.touch(ctx, fromID)
	return req, nil
}

// RespondFriendRequest accepts or rejects a request addressed to userID.
func (s *Service) RespondFriendRequest(ctx context.Context, userID, requestID string, accept bool) (models.FriendRequest, error) {
	req, ok, err := s.stores.Graph.GetFriendRequest(ctx, requestID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if !ok {
		return models.FriendRequest{}, ErrNotFound
	}
	if req.ToUserID != userID {
		return models.FriendRequest{}, ErrForbidden
	}
	if accept {
		req, err = s.stores.Graph.AcceptFriendRequest(ctx, requestID)
	} else {
		req, err = s.stores.Graph.RejectFriendRequest(ctx, requestID)
	}
	if err != nil {
		return models.FriendRequest{}, err
	}
	s.touch(ctx, userID)
	return req, nil
}

// StartChat opens a chat between userID and the others. Every participant
// must exist.
func (s *Service) StartChat(ctx context.Context, userID string, others ...string) (models.Chat, error) {
	seen := map[string]struct{}{userID: {}}
	participants := []string{userID}
	for _, id := range others {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if len(participants) < 2 {
		return models.Chat{}, invalid("a chat needs at least two participants")
	}
	for _, id := range participants {
		if _, err := s.requireUser(ctx, id); err != nil {
			return models.Chat{}, err
		}
	}
	chat, err := s.stores.Chats.SaveChat(ctx, models.Chat{
		ID:           idgen.New(),
		Participants: participants,
		CreatedAt:    idgen.NowMillis(s.now()),
	})
	if err != nil {
		return models.Chat{}, err
	}
	s.touch(ctx, userID)
	return chat, nil
}

func (s *Service) SendMessage(ctx context.Context, userID, chatID, text string, attachment *models.Attachment) (models.Message, error) {
	if strings.TrimSpace(text) == "" && attachment == nil {
		return models.Message{}, invalid("message needs text or an attachment")
	}
	chat, ok, err := s.stores.Chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Message{}, err
	}
	if !ok {
		return models.Message{}, ErrNotFound
	}
	if !chat.HasParticipant(userID) {
		return models.Message{}, ErrForbidden
	}
	msg, err := s.stores.Chats.SaveMessage(ctx, chatID, models.Message{
		ID:         idgen.New(),
		SenderID:   userID,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  idgen.NowMillis(s.now()),
	})
	if err != nil {
		return models.Message{}, err
	}
	s.touch(ctx, userID)
	return msg, nil
}

func (s *Service) requireUser(ctx context.Context, id string) (models.User, error) {
	u, ok, err := s.stores.Users.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

// touch records activity. The action it follows has already succeeded, so
// a failure here is only logged.
func (s *Service) touch(ctx context.Context, userID string) {
	if err := s.stores.Presence.UpdateLastActive(ctx, userID); err != nil {
		s.log.WithField("userId", userID).WithError(err).Warn("presence update failed")
	}
}
