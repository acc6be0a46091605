package store

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"socialkv/internal/database"
	"socialkv/internal/keys"
)

// Presence keeps one lastactive:{id} timestamp per user.
type Presence struct {
	base
}

func (p *Presence) UpdateLastActive(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidRequest
	}
	return p.kv.Set(ctx, keys.LastActive(userID), strconv.FormatInt(p.nowMillis(), 10))
}

// LastActive returns the stored epoch millis for userID.
func (p *Presence) LastActive(ctx context.Context, userID string) (int64, bool, error) {
	raw, ok, err := p.kv.Get(ctx, keys.LastActive(userID))
	if err != nil || !ok {
		return 0, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, &database.StorageError{Op: "decode", Key: keys.LastActive(userID), Err: err}
	}
	return ms, true, nil
}

// GetOnlineStatus reports every id in userIDs as online when its timestamp
// is within the online window. Users without a timestamp are offline. The
// lookups run concurrently, at most fanOut at a time.
func (p *Presence) GetOnlineStatus(ctx context.Context, userIDs []string) (map[string]bool, error) {
	now := p.nowMillis()
	window := p.opts.onlineWindow.Milliseconds()

	var mu sync.Mutex
	out := make(map[string]bool, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	if p.opts.fanOut > 0 {
		g.SetLimit(p.opts.fanOut)
	}
	for _, id := range userIDs {
		id := id
		g.Go(func() error {
			last, ok, err := p.LastActive(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = ok && now-last < window
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
