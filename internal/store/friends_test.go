package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialkv/internal/database"
	"socialkv/internal/database/kvtest"
	"socialkv/internal/models"
	"socialkv/internal/store"
)

func TestFriendRequestScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	alice := testUser("a", "alice", "+1000")
	bob := testUser("b", "bob", "+2000")
	saveUsers(t, s, alice, bob)

	sent, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, models.FriendRequestPending, sent.Status)

	incoming, err := s.Graph.GetIncomingRequests(ctx, "b")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "a", incoming[0].FromUserID)
	assert.Equal(t, models.FriendRequestPending, incoming[0].Status)

	accepted, err := s.Graph.AcceptFriendRequest(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestAccepted, accepted.Status)
	assert.NotZero(t, accepted.UpdatedAt)

	friendsOfA, err := s.Graph.GetUserFriends(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, friendsOfA)
	friendsOfB, err := s.Graph.GetUserFriends(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, friendsOfB)

	incoming, err = s.Graph.GetIncomingRequests(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, incoming)

	// A second identical request is stored alongside the accepted one.
	again, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, sent.ID, again.ID)

	first, ok, err := s.Graph.GetFriendRequest(ctx, sent.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.FriendRequestAccepted, first.Status)
	second, ok, err := s.Graph.GetFriendRequest(ctx, again.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.FriendRequestPending, second.Status)

	incoming, err = s.Graph.GetIncomingRequests(ctx, "b")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, again.ID, incoming[0].ID)
}

func TestRejectFriendRequest(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())

	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	rejected, err := s.Graph.RejectFriendRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestRejected, rejected.Status)

	for _, id := range []string{"a", "b"} {
		friends, err := s.Graph.GetUserFriends(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, friends)
	}
	incoming, err := s.Graph.GetIncomingRequests(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, incoming)
}

func TestFriendRequestTransitions(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())

	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	accepted, err := s.Graph.AcceptFriendRequest(ctx, req.ID)
	require.NoError(t, err)

	again, err := s.Graph.AcceptFriendRequest(ctx, req.ID)
	require.NoError(t, err, "accept is idempotent")
	assert.Equal(t, accepted, again)
	_, err = s.Graph.RejectFriendRequest(ctx, req.ID)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	_, err = s.Graph.AcceptFriendRequest(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Graph.RejectFriendRequest(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "a"})
	assert.ErrorIs(t, err, store.ErrInvalidRequest)
}

func TestSendFriendRequestForcesPending(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())

	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{
		ID: "r1", FromUserID: "a", ToUserID: "b", Status: models.FriendRequestAccepted, CreatedAt: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", req.ID)
	assert.Equal(t, int64(5), req.CreatedAt)
	assert.Equal(t, models.FriendRequestPending, req.Status)
}

func TestIncomingRequestsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	for _, from := range []string{"x", "y", "z"} {
		_, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: from, ToUserID: "b"})
		require.NoError(t, err)
	}

	incoming, err := s.Graph.GetIncomingRequests(ctx, "b")
	require.NoError(t, err)
	require.Len(t, incoming, 3)
	assert.Equal(t, "z", incoming[0].FromUserID)
	assert.Equal(t, "x", incoming[2].FromUserID)
}

func TestRemoveFriend(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t, database.NewMemoryDriver())
	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	_, err = s.Graph.AcceptFriendRequest(ctx, req.ID)
	require.NoError(t, err)

	ok, err := s.Graph.AreFriends(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Graph.RemoveFriend(ctx, "b", "a"))
	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		ok, err := s.Graph.AreFriends(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestAcceptPartialWriteIsAsymmetric(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(database.NewMemoryDriver())
	s, _ := newStores(t, faulty)
	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)

	faulty.FailOn(func(op, key string) bool { return op == "sadd" && key == "friends:user:b" })
	_, err = s.Graph.AcceptFriendRequest(ctx, req.ID)
	assert.ErrorIs(t, err, database.ErrStorage)
	faulty.FailOn(nil)

	stored, _, err := s.Graph.GetFriendRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestAccepted, stored.Status)

	broken, err := s.Graph.AsymmetricFriends(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, broken)
	broken, err = s.Graph.AsymmetricFriends(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, broken)
}

func TestAcceptRetryAfterFailedWrite(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(database.NewMemoryDriver())
	s, _ := newStores(t, faulty)
	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)

	faulty.FailOnKeyPrefix("sadd", "friends:user:a")
	_, err = s.Graph.AcceptFriendRequest(ctx, req.ID)
	assert.ErrorIs(t, err, kvtest.ErrInjected)
	faulty.FailOn(nil)

	friends, err := s.Graph.GetUserFriends(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, friends)

	accepted, err := s.Graph.AcceptFriendRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestAccepted, accepted.Status)

	friends, err = s.Graph.GetUserFriends(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, friends)
	friends, err = s.Graph.GetUserFriends(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, friends)
	ok, err := s.Graph.AreFriends(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	pending, err := s.Graph.GetIncomingRequests(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRemoveFriendPartialWriteIsAsymmetric(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(database.NewMemoryDriver())
	s, _ := newStores(t, faulty)
	req, err := s.Graph.SendFriendRequest(ctx, models.FriendRequest{FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	_, err = s.Graph.AcceptFriendRequest(ctx, req.ID)
	require.NoError(t, err)

	faulty.FailOn(func(op, key string) bool { return op == "srem" && key == "friends:user:b" })
	assert.ErrorIs(t, s.Graph.RemoveFriend(ctx, "a", "b"), kvtest.ErrInjected)
	faulty.FailOn(nil)

	broken, err := s.Graph.AsymmetricFriends(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, broken)
}
