package store

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"socialkv/internal/idgen"
	"socialkv/internal/keys"
	"socialkv/internal/models"
)

// Graph stores friend requests and the symmetric friends sets they produce.
// A request moves from pending to accepted or rejected and never leaves a
// terminal state. Requests stay in the recipient inbox after they resolve.
type Graph struct {
	base
}

// SendFriendRequest stores req as pending and files it in the recipient's
// inbox. An earlier pending request for the same pair is not detected.
func (g *Graph) SendFriendRequest(ctx context.Context, req models.FriendRequest) (models.FriendRequest, error) {
	if req.FromUserID == "" || req.ToUserID == "" || req.FromUserID == req.ToUserID {
		return models.FriendRequest{}, ErrInvalidRequest
	}
	if req.ID == "" {
		req.ID = idgen.New()
	}
	if req.CreatedAt == 0 {
		req.CreatedAt = g.nowMillis()
	}
	req.Status = models.FriendRequestPending
	req.UpdatedAt = 0

	log := g.log().WithFields(logrus.Fields{"requestId": req.ID, "from": req.FromUserID, "to": req.ToUserID})
	err := runSteps(log, "send friend request", []step{
		{"record", func() error { return setJSON(ctx, g.kv, keys.FriendRequest(req.ID), req) }},
		{"inbox", func() error { return g.kv.SAdd(ctx, keys.RequestsTo(req.ToUserID), req.ID) }},
	})
	if err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

func (g *Graph) GetFriendRequest(ctx context.Context, id string) (models.FriendRequest, bool, error) {
	if id == "" {
		return models.FriendRequest{}, false, nil
	}
	return getJSON[models.FriendRequest](ctx, g.kv, keys.FriendRequest(id))
}

// GetIncomingRequests returns the pending requests addressed to userID,
// newest first.
func (g *Graph) GetIncomingRequests(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	all, err := loadAll[models.FriendRequest](ctx, g.kv, keys.RequestsTo(userID), keys.FriendRequest)
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, r := range all {
		if r.Status == models.FriendRequestPending {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return newer(pending[i].CreatedAt, pending[i].ID, pending[j].CreatedAt, pending[j].ID)
	})
	return pending, nil
}

// AcceptFriendRequest marks the request accepted, then adds each side to
// the other's friends set. A failure between the two set writes leaves an
// asymmetric friendship; AsymmetricFriends finds those. Accepting an
// already accepted request replays the set writes, so a failed accept can
// be retried.
func (g *Graph) AcceptFriendRequest(ctx context.Context, id string) (models.FriendRequest, error) {
	req, err := g.transition(ctx, id, models.FriendRequestAccepted)
	if err != nil {
		return models.FriendRequest{}, err
	}

	unlock := g.lock(keys.Friends(req.FromUserID), keys.Friends(req.ToUserID))
	defer unlock()
	log := g.log().WithFields(logrus.Fields{"requestId": id, "from": req.FromUserID, "to": req.ToUserID})
	err = runSteps(log, "accept friend request", []step{
		{"sender friends", func() error { return g.kv.SAdd(ctx, keys.Friends(req.FromUserID), req.ToUserID) }},
		{"recipient friends", func() error { return g.kv.SAdd(ctx, keys.Friends(req.ToUserID), req.FromUserID) }},
	})
	if err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// RejectFriendRequest only flips the status; the friends sets were never
// touched.
func (g *Graph) RejectFriendRequest(ctx context.Context, id string) (models.FriendRequest, error) {
	return g.transition(ctx, id, models.FriendRequestRejected)
}

func (g *Graph) transition(ctx context.Context, id string, to models.FriendRequestStatus) (models.FriendRequest, error) {
	unlock := g.lock(keys.FriendRequest(id))
	defer unlock()

	log := g.log().WithFields(logrus.Fields{"requestId": id, "status": to})
	req, ok, err := g.GetFriendRequest(ctx, id)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if !ok {
		log.Debug("friend request not found")
		return models.FriendRequest{}, ErrNotFound
	}
	if req.Status == to && to == models.FriendRequestAccepted {
		log.Debug("friend request already accepted")
		return req, nil
	}
	if req.Status != models.FriendRequestPending {
		log.WithField("current", req.Status).Debug("friend request already resolved")
		return models.FriendRequest{}, ErrInvalidTransition
	}
	req.Status = to
	req.UpdatedAt = g.nowMillis()
	if err := setJSON(ctx, g.kv, keys.FriendRequest(id), req); err != nil {
		log.WithError(err).Error("friend request status write failed")
		return models.FriendRequest{}, err
	}
	log.Debug("friend request resolved")
	return req, nil
}

// GetUserFriends returns the friend ids of userID in ascending order.
func (g *Graph) GetUserFriends(ctx context.Context, userID string) ([]string, error) {
	ids, err := g.kv.SMembers(ctx, keys.Friends(userID))
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// RemoveFriend drops the friendship from both sides, a's set first.
func (g *Graph) RemoveFriend(ctx context.Context, a, b string) error {
	unlock := g.lock(keys.Friends(a), keys.Friends(b))
	defer unlock()

	log := g.log().WithFields(logrus.Fields{"userId": a, "friendId": b})
	return runSteps(log, "remove friend", []step{
		{"first side", func() error { return g.kv.SRem(ctx, keys.Friends(a), b) }},
		{"second side", func() error { return g.kv.SRem(ctx, keys.Friends(b), a) }},
	})
}

// AreFriends reports whether b is in a's friends set. It reads one side only.
func (g *Graph) AreFriends(ctx context.Context, a, b string) (bool, error) {
	ids, err := g.kv.SMembers(ctx, keys.Friends(a))
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == b {
			return true, nil
		}
	}
	return false, nil
}

// AsymmetricFriends lists the friends of userID whose own set does not
// contain userID back.
func (g *Graph) AsymmetricFriends(ctx context.Context, userID string) ([]string, error) {
	ids, err := g.GetUserFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	var broken []string
	for _, id := range ids {
		ok, err := g.AreFriends(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			broken = append(broken, id)
		}
	}
	return broken, nil
}
