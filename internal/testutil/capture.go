// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testutil provides in-memory stream sources and sinks for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/rtsnap/internal/capture"
)

// FakeSource hands out FakeStreams. The first FailOpens calls to Open fail
// with capture.ErrOpenFailed.
type FakeSource struct {
	FailOpens int
	// LateFrames makes every stream return a frame once its context is
	// cancelled instead of the context error.
	LateFrames bool

	mu       sync.Mutex
	opens    int
	live     map[string]int
	overlaps int
	streams  []*FakeStream
	opened   chan *FakeStream
}

func NewFakeSource() *FakeSource {
	return &FakeSource{
		live:   make(map[string]int),
		opened: make(chan *FakeStream, 256),
	}
}

func (s *FakeSource) Open(ctx context.Context, url string) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.opens++
	if s.opens <= s.FailOpens {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: connection refused", capture.ErrOpenFailed)
	}
	if s.live[url] > 0 {
		s.overlaps++
	}
	s.live[url]++
	st := &FakeStream{
		URL:    url,
		Frames: make(chan capture.Frame),
		late:   s.LateFrames,
		closed: make(chan struct{}),
		source: s,
	}
	s.streams = append(s.streams, st)
	s.mu.Unlock()

	select {
	case s.opened <- st:
	default:
	}
	return st, nil
}

// Opens counts Open calls, failed ones included.
func (s *FakeSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Overlaps counts opens of a URL that still had an unclosed stream.
func (s *FakeSource) Overlaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlaps
}

// Live returns the number of open streams per URL.
func (s *FakeSource) Live() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.live))
	for url, n := range s.live {
		if n > 0 {
			out[url] = n
		}
	}
	return out
}

// Opened delivers successfully opened streams; beyond its buffer they are
// only kept in the source.
func (s *FakeSource) Opened() <-chan *FakeStream { return s.opened }

// NextOpened waits for the next successfully opened stream.
func (s *FakeSource) NextOpened(timeout time.Duration) (*FakeStream, error) {
	select {
	case st := <-s.opened:
		return st, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no stream opened within %s", timeout)
	}
}

// FakeStream yields the frames sent on Frames. Closing Frames (see End)
// ends the stream.
type FakeStream struct {
	URL    string
	Frames chan capture.Frame

	late      bool
	seq       uint64
	endOnce   sync.Once
	closeOnce sync.Once
	closed    chan struct{}
	source    *FakeSource
}

func (st *FakeStream) Next(ctx context.Context) (capture.Frame, error) {
	if st.late {
		<-ctx.Done()
		st.seq++
		return capture.Frame{Data: []byte("late"), Seq: st.seq}, nil
	}
	select {
	case <-ctx.Done():
		return capture.Frame{}, ctx.Err()
	case f, ok := <-st.Frames:
		if !ok {
			return capture.Frame{}, capture.ErrStreamEnded
		}
		st.seq++
		if f.Seq == 0 {
			f.Seq = st.seq
		}
		return f, nil
	}
}

func (st *FakeStream) Close() error {
	st.closeOnce.Do(func() {
		close(st.closed)
		st.source.mu.Lock()
		st.source.live[st.URL]--
		st.source.mu.Unlock()
	})
	return nil
}

// Send delivers one frame to the reader. It returns false if nobody read it
// within timeout.
func (st *FakeStream) Send(data string, timeout time.Duration) bool {
	select {
	case st.Frames <- capture.Frame{Data: []byte(data), CapturedAt: time.Now()}:
		return true
	case <-time.After(timeout):
		return false
	}
}

// End makes the next read fail with capture.ErrStreamEnded.
func (st *FakeStream) End() {
	st.endOnce.Do(func() { close(st.Frames) })
}

// Closed is closed once the reader released the stream.
func (st *FakeStream) Closed() <-chan struct{} { return st.closed }
