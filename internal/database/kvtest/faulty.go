package kvtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"socialkv/internal/database"
)

// ErrInjected is the cause of every failure produced by Faulty.
var ErrInjected = errors.New("injected fault")

// Faulty forwards to an inner KV until a call matches FailOn, then fails
// that call (and every later matching call) with a StorageError. It stands
// in for a process crash or network fault between two writes.
type Faulty struct {
	database.KV

	mu     sync.Mutex
	failOn func(op, key string) bool
	calls  []string
}

func NewFaulty(inner database.KV) *Faulty {
	return &Faulty{KV: inner}
}

// FailOn arms the fault. A nil predicate disarms it.
func (f *Faulty) FailOn(pred func(op, key string) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = pred
}

// FailOnKeyPrefix fails the given command on keys starting with prefix.
func (f *Faulty) FailOnKeyPrefix(op, prefix string) {
	f.FailOn(func(o, k string) bool { return o == op && strings.HasPrefix(k, prefix) })
}

// Calls returns "op key" for every forwarded or failed call, in order.
func (f *Faulty) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Faulty) check(op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+key)
	if f.failOn != nil && f.failOn(op, key) {
		return &database.StorageError{Op: op, Key: key, Err: ErrInjected}
	}
	return nil
}

func (f *Faulty) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.check("get", key); err != nil {
		return "", false, err
	}
	return f.KV.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key, value string) error {
	if err := f.check("set", key); err != nil {
		return err
	}
	return f.KV.Set(ctx, key, value)
}

func (f *Faulty) Del(ctx context.Context, key string) error {
	if err := f.check("del", key); err != nil {
		return err
	}
	return f.KV.Del(ctx, key)
}

func (f *Faulty) SAdd(ctx context.Context, key string, members ...string) error {
	if err := f.check("sadd", key); err != nil {
		return err
	}
	return f.KV.SAdd(ctx, key, members...)
}

func (f *Faulty) SRem(ctx context.Context, key string, members ...string) error {
	if err := f.check("srem", key); err != nil {
		return err
	}
	return f.KV.SRem(ctx, key, members...)
}

func (f *Faulty) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := f.check("smembers", key); err != nil {
		return nil, err
	}
	return f.KV.SMembers(ctx, key)
}

var _ database.KV = (*Faulty)(nil)
