// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSubscriptionClosed is returned by Subscription.Next after Close.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Store holds the current configuration snapshot. Reads are lock-free; a
// publish swaps the whole snapshot pointer, so readers never observe a
// partially updated stream list.
type Store struct {
	current atomic.Pointer[Snapshot]

	// mu serialises publishers so versions and per-subscriber delivery order agree.
	mu      sync.Mutex
	version uint64
	subs    map[*Subscription]struct{}
}

// NewStore creates a store whose current snapshot is the empty version 0.
func NewStore() *Store {
	s := &Store{subs: make(map[*Subscription]struct{})}
	empty := NewSnapshot(nil)
	s.current.Store(&empty)
	return s
}

// Current returns the most recently published snapshot. It never returns nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish stamps snap with the next version, makes it current and queues it
// for every subscriber. The returned pointer is the published snapshot.
func (s *Store) Publish(snap Snapshot) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	snap.Version = s.version
	published := &snap
	s.current.Store(published)

	for sub := range s.subs {
		sub.push(published)
	}
	return published
}

// Subscribe registers a subscriber that receives every snapshot published
// after this call, in publish order.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		store:  s,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// Subscription is an unbounded, ordered queue of published snapshots.
// Publishers never block on a slow subscriber.
type Subscription struct {
	store *Store

	mu     sync.Mutex
	queue  []*Snapshot
	notify chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

func (sub *Subscription) push(snap *Snapshot) {
	sub.mu.Lock()
	sub.queue = append(sub.queue, snap)
	sub.mu.Unlock()

	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a snapshot is available, ctx is done, or the
// subscription is closed.
func (sub *Subscription) Next(ctx context.Context) (*Snapshot, error) {
	for {
		sub.mu.Lock()
		if len(sub.queue) > 0 {
			snap := sub.queue[0]
			sub.queue[0] = nil
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()
			return snap, nil
		}
		sub.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-sub.closed:
			return nil, ErrSubscriptionClosed
		case <-sub.notify:
		}
	}
}

// Pending reports how many snapshots are queued but not yet consumed.
func (sub *Subscription) Pending() int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return len(sub.queue)
}

// Close unregisters the subscription and wakes any blocked Next call.
func (sub *Subscription) Close() {
	sub.closeOnce.Do(func() {
		sub.store.unsubscribe(sub)
		close(sub.closed)
	})
}
