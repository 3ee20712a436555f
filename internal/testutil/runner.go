// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import "sync"

// RunTracker counts running units of work per stream name. Two runs of the
// same name at once are an overlap, whatever URL each of them reads.
type RunTracker struct {
	mu       sync.Mutex
	live     map[string]int
	starts   map[string]int
	overlaps int
}

func NewRunTracker() *RunTracker {
	return &RunTracker{live: make(map[string]int), starts: make(map[string]int)}
}

// Enter records the start of a run of name and returns the func that records
// its end.
func (t *RunTracker) Enter(name string) func() {
	t.mu.Lock()
	if t.live[name] > 0 {
		t.overlaps++
	}
	t.live[name]++
	t.starts[name]++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.live[name]--
			t.mu.Unlock()
		})
	}
}

// Overlaps counts runs that started while another run of the same name was
// still active.
func (t *RunTracker) Overlaps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overlaps
}

// Starts returns how often a run of name was started.
func (t *RunTracker) Starts(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.starts[name]
}

// Live returns the number of active runs per name.
func (t *RunTracker) Live() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.live))
	for name, n := range t.live {
		if n > 0 {
			out[name] = n
		}
	}
	return out
}
