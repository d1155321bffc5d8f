// Package keymutex provides mutual exclusion keyed by an arbitrary value.
package keymutex

import (
	"context"
	"fmt"
	"sync"
)

// KeyedMutex serializes callers that share a key while letting callers on
// different keys proceed concurrently. Keys are compared by their
// fmt.Sprint representation.
//
// The lock map is never exposed; callers acquire through Acquire or
// WithLock and must release via the returned function, normally deferred.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	// ch has capacity 1 and holds the lock token. A successful send
	// acquires the lock; receiving releases it.
	ch   chan struct{}
	refs int
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held or ctx is canceled.
// On success it returns a release function that must be called exactly once.
func (m *KeyedMutex) Acquire(ctx context.Context, key any) (func(), error) {
	ks := fmt.Sprint(key)

	m.mu.Lock()
	e, ok := m.entries[ks]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[ks] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.put(ks, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-e.ch
			m.put(ks, e)
		})
	}
	return release, nil
}

// WithLock runs fn while holding the lock for key. The lock is released
// when fn returns, whether it succeeds or errors.
func (m *KeyedMutex) WithLock(ctx context.Context, key any, fn func() error) error {
	release, err := m.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// put drops one reference to the key's entry, removing it once idle so the
// map does not grow with every key ever seen.
func (m *KeyedMutex) put(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}
