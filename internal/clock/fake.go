// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Timers fire when Advance or Set moves the
// current time to or past their deadline.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	waiters []chan struct{}
}

// NewFake returns a fake clock positioned at now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{
		clock:    f,
		c:        make(chan time.Time, 1),
		deadline: f.now.Add(d),
		active:   true,
	}
	f.timers = append(f.timers, t)
	if d <= 0 {
		t.fireLocked(f.now)
	}
	for _, w := range f.waiters {
		close(w)
	}
	f.waiters = nil
	return t
}

// Advance moves the clock forward by d and fires every due timer.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	f.fireDueLocked(now)
	f.mu.Unlock()
}

// Set jumps the clock to t (which may be earlier than the current time) and
// fires every due timer.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.fireDueLocked(t)
	f.mu.Unlock()
}

// BlockUntilTimers waits until at least n timers are pending. It lets tests
// synchronise with a goroutine that is about to sleep on the clock.
func (f *Fake) BlockUntilTimers(n int) {
	for {
		f.mu.Lock()
		if f.pendingLocked() >= n {
			f.mu.Unlock()
			return
		}
		w := make(chan struct{})
		f.waiters = append(f.waiters, w)
		f.mu.Unlock()
		<-w
	}
}

func (f *Fake) pendingLocked() int {
	n := 0
	for _, t := range f.timers {
		if t.active {
			n++
		}
	}
	return n
}

func (f *Fake) trackedLocked(t *fakeTimer) bool {
	for _, x := range f.timers {
		if x == t {
			return true
		}
	}
	return false
}

func (f *Fake) fireDueLocked(now time.Time) {
	kept := f.timers[:0]
	for _, t := range f.timers {
		if t.active && !t.deadline.After(now) {
			t.fireLocked(now)
		}
		if t.active {
			kept = append(kept, t)
		}
	}
	f.timers = kept
}

type fakeTimer struct {
	clock    *Fake
	c        chan time.Time
	deadline time.Time
	active   bool
}

func (t *fakeTimer) fireLocked(now time.Time) {
	t.active = false
	select {
	case t.c <- now:
	default:
	}
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	f := t.clock
	f.mu.Lock()
	defer f.mu.Unlock()

	was := t.active
	select {
	case <-t.c:
	default:
	}
	t.deadline = f.now.Add(d)
	t.active = true
	if !f.trackedLocked(t) {
		f.timers = append(f.timers, t)
	}
	if d <= 0 {
		t.fireLocked(f.now)
	}
	for _, w := range f.waiters {
		close(w)
	}
	f.waiters = nil
	return was
}
