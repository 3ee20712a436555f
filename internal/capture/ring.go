// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bytes"
	"strings"
	"sync"
)

const maxPartialLine = 4 << 10

// RingBuffer keeps the last N lines written to it. It is used as the decoder's
// stderr so failures can be reported with the decoder's own diagnostics.
type RingBuffer struct {
	mu      sync.Mutex
	lines   []string
	pos     int
	full    bool
	partial []byte
}

func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{lines: make([]string, size)}
}

// Add appends one line, evicting the oldest when full.
func (r *RingBuffer) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(line)
}

func (r *RingBuffer) addLocked(line string) {
	r.lines[r.pos] = line
	r.pos = (r.pos + 1) % len(r.lines)
	if r.pos == 0 {
		r.full = true
	}
}

// Write implements io.Writer, splitting p into lines.
func (r *RingBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial = append(r.partial, p...)
	for {
		i := bytes.IndexByte(r.partial, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimRight(string(r.partial[:i]), "\r"); line != "" {
			r.addLocked(line)
		}
		r.partial = r.partial[i+1:]
	}
	if len(r.partial) > maxPartialLine {
		r.addLocked(string(r.partial))
		r.partial = nil
	}
	return len(p), nil
}

// GetAll returns the buffered lines, oldest first, including an unterminated
// trailing line.
func (r *RingBuffer) GetAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []string
	if !r.full {
		res = append(res, r.lines[:r.pos]...)
	} else {
		res = make([]string, 0, len(r.lines)+1)
		res = append(res, r.lines[r.pos:]...)
		res = append(res, r.lines[:r.pos]...)
	}
	if len(r.partial) > 0 {
		res = append(res, string(r.partial))
	}
	return res
}

// Tail joins the buffered lines into one log-friendly string.
func (r *RingBuffer) Tail() string {
	return strings.Join(r.GetAll(), " | ")
}
