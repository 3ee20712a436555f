// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"fmt"
	"time"
)

// State is the connection state of a worker.
type State int

const (
	StateConnecting State = iota
	StateStreaming
	StateDisconnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON status output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateConnecting; st <= StateStopped; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown worker state %q", text)
}

// Status is a point-in-time copy of a worker's state record.
type Status struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	State       State     `json:"state"`
	Since       time.Time `json:"since"`
	LastCapture time.Time `json:"last_capture,omitempty"`
	Captures    uint64    `json:"captures"`
	Failures    uint64    `json:"failures"`
	LastError   string    `json:"last_error,omitempty"`
}

// Status returns a copy of the worker's state record. It is safe to call
// from any goroutine.
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}
