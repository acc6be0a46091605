package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrStorage matches every error raised by a backend.
var ErrStorage = errors.New("storage fault")

// KV is the flat key-value primitive the stores are built on: scalar
// get/set/delete plus unordered string sets. A missing key is reported as
// found == false, never as an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Driver is a KV backed by a concrete database.
type Driver interface {
	KV
	Connect(ctx context.Context, dsn string) error
	Ping(ctx context.Context) error
	// Reset removes every key. Used before benchmarks and in tests.
	Reset(ctx context.Context) error
	Close() error
}

// StorageError wraps a backend failure with the command and key involved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func fault(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

var drivers = map[string]func() Driver{
	"memory":   func() Driver { return NewMemoryDriver() },
	"redis":    func() Driver { return &RedisDriver{} },
	"postgres": func() Driver { return &PostgresDriver{} },
	"mysql":    func() Driver { return &MySQLDriver{} },
	"sqlite":   func() Driver { return &SQLiteDriver{} },
	"mongo":    func() Driver { return &MongoDriver{} },
	"leveldb":  func() Driver { return &LevelDBDriver{} },
}

// Open returns an unconnected driver for the named backend.
func Open(name string) (Driver, error) {
	newDriver, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported backend %q", name)
	}
	return newDriver(), nil
}

// Backends lists the supported backend names.
func Backends() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dedupe(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := members[:0:0]
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
