// Package keylock serializes writers per aggregate root. The stores call
// Lock around every read-modify-write; the default None locker keeps the
// unserialized behaviour where concurrent writers can lose updates.
package keylock

import (
	"hash/fnv"
	"sort"
	"sync"
)

// Locker acquires exclusive access to every given key and returns the
// function that releases it.
type Locker interface {
	Lock(keys ...string) (unlock func())
}

// None never blocks.
type None struct{}

func (None) Lock(keys ...string) func() { return func() {} }

// Striped maps keys onto a fixed pool of mutexes by FNV hash. Two keys may
// share a stripe; that only costs concurrency, never correctness.
type Striped struct {
	stripes []sync.Mutex
}

// DefaultStripes is used when NewStriped is given a non-positive size.
const DefaultStripes = 256

func NewStriped(n int) *Striped {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

// Lock takes the stripes in ascending index order so multi-key callers
// cannot deadlock each other.
func (s *Striped) Lock(keys ...string) func() {
	idx := make([]int, 0, len(keys))
	seen := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		i := s.stripe(k)
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		s.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			s.stripes[idx[j]].Unlock()
		}
	}
}

func (s *Striped) stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.stripes)))
}
