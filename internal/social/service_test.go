package social_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"socialkv/internal/database"
	"socialkv/internal/database/kvtest"
	"socialkv/internal/models"
	"socialkv/internal/social"
	"socialkv/internal/store"
)

func newService(t *testing.T, kv database.KV) (*social.Service, *store.Stores) {
	t.Helper()
	stores := store.New(kv)
	return social.New(stores, social.WithHasher(social.BcryptHasher{Cost: bcrypt.MinCost})), stores
}

func register(t *testing.T, svc *social.Service, nickname, phone string) models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), social.RegisterInput{
		FullName: "User " + nickname,
		Phone:    phone,
		Nickname: nickname,
		Password: "secret-" + nickname,
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, stores := newService(t, database.NewMemoryDriver())

	u, err := svc.Register(ctx, social.RegisterInput{
		FullName: "Alice A",
		Phone:    "+1000",
		Nickname: "alice",
		Email:    "alice@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Empty(t, u.Password)
	assert.Equal(t, "user", u.Role)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 1, u.TesterLevel)
	assert.Equal(t, models.DefaultSettings(), u.Settings)
	require.NotNil(t, u.Email)
	assert.Equal(t, "alice@example.com", *u.Email)

	for _, lookup := range []func() (models.User, bool, error){
		func() (models.User, bool, error) { return stores.Users.GetUserByNickname(ctx, "alice") },
		func() (models.User, bool, error) { return stores.Users.GetUserByPhone(ctx, "+1000") },
		func() (models.User, bool, error) { return stores.Users.GetUserByEmail(ctx, "alice@example.com") },
	} {
		got, ok, err := lookup()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, u.ID, got.ID)
	}

	hash, _, err := stores.Users.GetCredentials(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t, database.NewMemoryDriver())
	tests := []struct {
		name string
		in   social.RegisterInput
	}{
		{"missing full name", social.RegisterInput{Phone: "+1", Nickname: "a", Password: "p"}},
		{"missing phone", social.RegisterInput{FullName: "A", Nickname: "a", Password: "p"}},
		{"blank nickname", social.RegisterInput{FullName: "A", Phone: "+1", Nickname: "  ", Password: "p"}},
		{"missing password", social.RegisterInput{FullName: "A", Phone: "+1", Nickname: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, social.ErrInvalidInput)
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(database.NewMemoryDriver())
	svc, _ := newService(t, faulty)
	_, err := svc.Register(ctx, social.RegisterInput{
		FullName: "Alice", Phone: "+1000", Nickname: "alice", Email: "a@example.com", Password: "pw",
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    social.RegisterInput
		field string
	}{
		{"nickname", social.RegisterInput{FullName: "X", Phone: "+9", Nickname: "alice", Password: "pw"}, "nickname"},
		{"phone", social.RegisterInput{FullName: "X", Phone: "+1000", Nickname: "other", Password: "pw"}, "phone"},
		{"email", social.RegisterInput{FullName: "X", Phone: "+9", Nickname: "other", Email: "a@example.com", Password: "pw"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Any write during a rejected registration is a bug.
			faulty.FailOn(func(op, _ string) bool { return op != "get" })
			defer faulty.FailOn(nil)

			_, err := svc.Register(ctx, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, social.ErrConflict)
			var conflict *social.ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.field, conflict.Field)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, stores := newService(t, database.NewMemoryDriver())
	_, err := svc.Register(ctx, social.RegisterInput{
		FullName: "Alice", Phone: "+1000", Nickname: "alice", Email: "a@example.com", Password: "pw",
	})
	require.NoError(t, err)

	for _, in := range []social.LoginInput{
		{Phone: "+1000", Password: "pw"},
		{Nickname: "alice", Password: "pw"},
		{Email: "a@example.com", Password: "pw"},
	} {
		u, err := svc.Login(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Nickname)
		assert.Empty(t, u.Password)
		assert.NotZero(t, u.LastActive)

		_, ok, err := stores.Presence.LastActive(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err = svc.Login(ctx, social.LoginInput{Nickname: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, social.ErrInvalidCredentials)
	_, err = svc.Login(ctx, social.LoginInput{Nickname: "nobody", Password: "pw"})
	assert.ErrorIs(t, err, social.ErrNotFound)
	_, err = svc.Login(ctx, social.LoginInput{Password: "pw"})
	assert.ErrorIs(t, err, social.ErrInvalidInput)
}

func TestPostsFlow(t *testing.T) {
	ctx := context.Background()
	svc, stores := newService(t, database.NewMemoryDriver())
	alice := register(t, svc, "alice", "+1000")
	bob := register(t, svc, "bob", "+2000")

	p, err := svc.CreatePost(ctx, alice.ID, social.PostInput{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "User alice", p.UserName)
	assert.Equal(t, "alice", p.UserNickname)
	assert.Nil(t, p.Image)

	liked, err := svc.ToggleLike(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, liked.Likes)

	commented, err := svc.Comment(ctx, bob.ID, p.ID, "nice")
	require.NoError(t, err)
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, bob.ID, commented.Comments[0].UserID)

	status, err := stores.Presence.GetOnlineStatus(ctx, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.True(t, status[alice.ID])
	assert.True(t, status[bob.ID])

	_, err = svc.CreatePost(ctx, "ghost", social.PostInput{Content: "x"})
	assert.ErrorIs(t, err, social.ErrNotFound)
	_, err = svc.CreatePost(ctx, alice.ID, social.PostInput{Content: "  "})
	assert.ErrorIs(t, err, social.ErrInvalidInput)
	_, err = svc.ToggleLike(ctx, bob.ID, "missing")
	assert.ErrorIs(t, err, social.ErrNotFound)
	_, err = svc.Comment(ctx, bob.ID, p.ID, "")
	assert.ErrorIs(t, err, social.ErrInvalidInput)
}

func TestFriendRequestFlow(t *testing.T) {
	ctx := context.Background()
	svc, stores := newService(t, database.NewMemoryDriver())
	alice := register(t, svc, "alice", "+1000")
	bob := register(t, svc, "bob", "+2000")

	req, err := svc.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.RespondFriendRequest(ctx, alice.ID, req.ID, true)
	assert.ErrorIs(t, err, social.ErrForbidden)

	accepted, err := svc.RespondFriendRequest(ctx, bob.ID, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestAccepted, accepted.Status)
	friends, err := stores.Graph.GetUserFriends(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, friends)

	_, err = svc.RespondFriendRequest(ctx, bob.ID, req.ID, false)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	_, err = svc.RespondFriendRequest(ctx, bob.ID, "missing", true)
	assert.ErrorIs(t, err, social.ErrNotFound)
	_, err = svc.SendFriendRequest(ctx, alice.ID, "ghost")
	assert.ErrorIs(t, err, social.ErrNotFound)
	_, err = svc.SendFriendRequest(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, social.ErrInvalidInput)
}

func TestChatFlow(t *testing.T) {
	ctx := context.Background()
	svc, stores := newService(t, database.NewMemoryDriver())
	alice := register(t, svc, "alice", "+1000")
	bob := register(t, svc, "bob", "+2000")
	carol := register(t, svc, "carol", "+3000")

	chat, err := svc.StartChat(ctx, alice.ID, bob.ID, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID, bob.ID}, chat.Participants)

	msg, err := svc.SendMessage(ctx, bob.ID, chat.ID, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, msg.SenderID)

	_, err = svc.SendMessage(ctx, carol.ID, chat.ID, "let me in", nil)
	assert.ErrorIs(t, err, social.ErrForbidden)
	_, err = svc.SendMessage(ctx, alice.ID, "missing", "hi", nil)
	assert.ErrorIs(t, err, social.ErrNotFound)
	_, err = svc.SendMessage(ctx, alice.ID, chat.ID, "", nil)
	assert.ErrorIs(t, err, social.ErrInvalidInput)
	_, err = svc.StartChat(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, social.ErrInvalidInput)
	_, err = svc.StartChat(ctx, alice.ID, "ghost")
	assert.ErrorIs(t, err, social.ErrNotFound)

	chats, err := stores.Chats.GetUserChats(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, msg.ID, chats[0].LastMessage.ID)
}

func TestPresenceFailureDoesNotFailAction(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(database.NewMemoryDriver())
	svc, _ := newService(t, faulty)
	alice := register(t, svc, "alice", "+1000")

	faulty.FailOnKeyPrefix("set", "lastactive:")
	_, err := svc.CreatePost(ctx, alice.ID, social.PostInput{Content: "still works"})
	assert.NoError(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := social.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "pw"))
	assert.ErrorIs(t, h.Compare(hash, "nope"), social.ErrInvalidCredentials)
	assert.ErrorIs(t, h.Compare("", "pw"), social.ErrInvalidCredentials)
}
