package database

import (
	"context"
	"sync"
)

// MemoryDriver keeps everything in process memory. It is the default
// backend for tests and local runs; nothing survives Close.
type MemoryDriver struct {
	mu     sync.RWMutex
	values map[string]string
	sets   map[string]map[string]struct{}
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		values: make(map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (md *MemoryDriver) Connect(ctx context.Context, dsn string) error { return ctx.Err() }

func (md *MemoryDriver) Ping(ctx context.Context) error { return ctx.Err() }

func (md *MemoryDriver) Close() error { return nil }

func (md *MemoryDriver) Reset(ctx context.Context) error {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.values = make(map[string]string)
	md.sets = make(map[string]map[string]struct{})
	return nil
}

func (md *MemoryDriver) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fault("get", key, err)
	}
	md.mu.RLock()
	defer md.mu.RUnlock()
	v, ok := md.values[key]
	return v, ok, nil
}

func (md *MemoryDriver) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return fault("set", key, err)
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	md.values[key] = value
	return nil
}

// Del removes a scalar or a set stored under key. Missing keys are ignored.
func (md *MemoryDriver) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fault("del", key, err)
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	delete(md.values, key)
	delete(md.sets, key)
	return nil
}

func (md *MemoryDriver) SAdd(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return fault("sadd", key, err)
	}
	if len(members) == 0 {
		return nil
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	set, ok := md.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		md.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (md *MemoryDriver) SRem(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return fault("srem", key, err)
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	set, ok := md.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(md.sets, key)
	}
	return nil
}

// SMembers returns a copy of the set; order is not guaranteed.
func (md *MemoryDriver) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault("smembers", key, err)
	}
	md.mu.RLock()
	defer md.mu.RUnlock()
	set := md.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

var _ Driver = (*MemoryDriver)(nil)
