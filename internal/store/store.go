// Package store encodes the social graph into the flat key-value primitive.
//
// Each entity has a primary record under its own key plus derived index
// keys (pointer keys and membership sets). Writes touch those keys one at a
// time in a fixed order, with no transaction around them: a failure part way
// leaves the earlier writes in place and the error is returned unchanged.
// Readers tolerate the two shapes this can produce, an index entry that
// points at nothing (skipped) and a record nothing indexes (invisible to
// listings until the write is retried).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"socialkv/internal/database"
	"socialkv/internal/keylock"
	"socialkv/internal/logging"
)

var (
	// ErrNotFound is returned by mutations whose target record is absent.
	// Lookups report absence through their found result instead.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a friend request is no longer pending.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidRequest is returned for arguments that can never succeed.
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	DefaultFeedLimit    = 20
	DefaultSearchLimit  = 10
	DefaultOnlineWindow = 5 * time.Minute
	DefaultFanOut       = 16
)

type options struct {
	log          logrus.FieldLogger
	locker       keylock.Locker
	now          func() time.Time
	feedLimit    int
	searchLimit  int
	onlineWindow time.Duration
	fanOut       int
}

type Option func(*options)

func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.log = l } }

// WithLocker serializes read-modify-write operations per aggregate root.
func WithLocker(l keylock.Locker) Option { return func(o *options) { o.locker = l } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithFeedLimit(n int) Option { return func(o *options) { o.feedLimit = n } }

func WithSearchLimit(n int) Option { return func(o *options) { o.searchLimit = n } }

func WithOnlineWindow(d time.Duration) Option { return func(o *options) { o.onlineWindow = d } }

// WithFanOut bounds concurrent lookups in presence checks.
func WithFanOut(n int) Option { return func(o *options) { o.fanOut = n } }

// Stores bundles the five index groups over one KV.
type Stores struct {
	Users    *Users
	Posts    *Posts
	Graph    *Graph
	Chats    *Chats
	Presence *Presence
}

func New(kv database.KV, opts ...Option) *Stores {
	o := options{
		log:          logging.Discard(),
		locker:       keylock.None{},
		now:          time.Now,
		feedLimit:    DefaultFeedLimit,
		searchLimit:  DefaultSearchLimit,
		onlineWindow: DefaultOnlineWindow,
		fanOut:       DefaultFanOut,
	}
	for _, opt := range opts {
		opt(&o)
	}
	b := base{kv: kv, opts: o}
	return &Stores{
		Users:    &Users{base: b},
		Posts:    &Posts{base: b},
		Graph:    &Graph{base: b},
		Chats:    &Chats{base: b},
		Presence: &Presence{base: b},
	}
}

type base struct {
	kv   database.KV
	opts options
}

func (b base) log() logrus.FieldLogger { return b.opts.log }

func (b base) nowMillis() int64 { return b.opts.now().UnixMilli() }

func (b base) lock(keys ...string) func() { return b.opts.locker.Lock(keys...) }

// getJSON loads and decodes the record at key. A record that does not
// decode is reported as a storage fault.
func getJSON[T any](ctx context.Context, kv database.KV, key string) (T, bool, error) {
	var out T
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, false, &database.StorageError{Op: "decode", Key: key, Err: err}
	}
	return out, true, nil
}

func setJSON(ctx context.Context, kv database.KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(b))
}

// loadAll dereferences every id in the set at setKey through keyFor,
// skipping ids whose record is gone.
func loadAll[T any](ctx context.Context, kv database.KV, setKey string, keyFor func(string) string) ([]T, error) {
	ids, err := kv.SMembers(ctx, setKey)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := getJSON[T](ctx, kv, keyFor(id))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// step is one write of a multi-key operation.
type step struct {
	what string
	do   func() error
}

// runSteps performs steps in order and stops at the first failure without
// undoing the steps already done.
func runSteps(log logrus.FieldLogger, op string, steps []step) error {
	for _, st := range steps {
		if err := st.do(); err != nil {
			log.WithError(err).Errorf("%s: %s write failed", op, st.what)
			return err
		}
		log.Debugf("%s: %s written", op, st.what)
	}
	return nil
}

// newer orders by timestamp descending, then id descending.
func newer(ta int64, ida string, tb int64, idb string) bool {
	if ta != tb {
		return ta > tb
	}
	return ida > idb
}
