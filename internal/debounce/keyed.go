// Package debounce schedules cancellable calls keyed by an identifier: scheduling a
// key again before its timer fires replaces the pending call.
package debounce

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	seq   uint64
}

// Keyed is safe for concurrent use. The zero value is ready to use.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	pending map[K]*entry
	seq     uint64
	stopped bool
}

// Schedule runs fn after d unless key is scheduled again, cancelled or the debouncer
// is stopped first. It reports whether a pending call for key was superseded.
func (k *Keyed[K]) Schedule(key K, d time.Duration, fn func()) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return false
	}
	if k.pending == nil {
		k.pending = map[K]*entry{}
	}

	superseded := false
	if e, ok := k.pending[key]; ok {
		e.timer.Stop()
		superseded = true
	}

	k.seq++
	seq := k.seq
	e := &entry{seq: seq}
	// fire blocks on k.mu until this assignment is done.
	e.timer = time.AfterFunc(d, func() { k.fire(key, seq, fn) })
	k.pending[key] = e
	return superseded
}

func (k *Keyed[K]) fire(key K, seq uint64, fn func()) {
	k.mu.Lock()
	e, ok := k.pending[key]
	// A Schedule can win the race against an already-expired timer; the newer entry owns the key.
	if !ok || e.seq != seq {
		k.mu.Unlock()
		return
	}
	delete(k.pending, key)
	k.mu.Unlock()

	fn()
}

// Cancel drops the pending call for key. It reports whether one was pending.
func (k *Keyed[K]) Cancel(key K) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(k.pending, key)
	return true
}

func (k *Keyed[K]) Pending(key K) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.pending[key]
	return ok
}

func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.pending)
}

// Stop cancels every pending call; later Schedule calls are ignored.
func (k *Keyed[K]) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	for key, e := range k.pending {
		e.timer.Stop()
		delete(k.pending, key)
	}
}
