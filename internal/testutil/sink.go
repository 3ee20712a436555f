// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package testutil

import (
	"context"
	"sync"

	"github.com/ManuGH/rtsnap/internal/capture"
)

// SinkWrite is one recorded write.
type SinkWrite struct {
	Name  string
	Frame capture.Frame
}

// RecordingSink keeps every write in memory. Unlike the file sink it does
// not look at the context, so tests can observe writes issued after
// cancellation.
type RecordingSink struct {
	mu     sync.Mutex
	writes []SinkWrite
}

func (s *RecordingSink) Write(_ context.Context, name string, frame capture.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, SinkWrite{Name: name, Frame: frame})
	return nil
}

func (s *RecordingSink) Writes() []SinkWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SinkWrite(nil), s.writes...)
}

// Count returns the number of writes for name.
func (s *RecordingSink) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.writes {
		if w.Name == name {
			n++
		}
	}
	return n
}
