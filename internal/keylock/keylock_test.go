package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStripedSerializesSameKey(t *testing.T) {
	l := NewStriped(8)
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("post:1")
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestStripedMultiKeyNoDeadlock(t *testing.T) {
	l := NewStriped(4)
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(2)
			go func() { defer wg.Done(); l.Lock("a", "b")() }()
			go func() { defer wg.Done(); l.Lock("b", "a")() }()
		}
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("multi-key locking deadlocked")
	}
}

func TestStripedDuplicateKeys(t *testing.T) {
	l := NewStriped(1)
	unlock := l.Lock("a", "a", "b")
	unlock()
	// A second acquisition would block forever if a stripe was locked twice.
	l.Lock("a")()
}

func TestNoneNeverBlocks(t *testing.T) {
	var l Locker = None{}
	u1 := l.Lock("x")
	u2 := l.Lock("x")
	u1()
	u2()
}

func TestDefaultStripes(t *testing.T) {
	assert.Len(t, NewStriped(0).stripes, DefaultStripes)
}
