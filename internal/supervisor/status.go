// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"time"

	"github.com/ManuGH/rtsnap/internal/worker"
)

// Status is a read-only view of the active worker set.
type Status struct {
	Version  uint64          `json:"config_version"`
	Swaps    uint64          `json:"swaps"`
	LastSwap time.Time       `json:"last_swap,omitempty"`
	Closed   bool            `json:"closed"`
	Workers  []worker.Status `json:"workers"`
}

// Status reports the workers started by the last completed swap. It does not
// wait for a swap in progress.
func (s *Supervisor) Status() Status {
	s.viewMu.RLock()
	v := s.view
	s.viewMu.RUnlock()

	st := Status{
		Version:  v.version,
		Swaps:    v.swaps,
		LastSwap: v.lastSwap,
		Closed:   s.base.Err() != nil,
		Workers:  make([]worker.Status, 0, len(v.handles)),
	}
	for _, h := range v.handles {
		st.Workers = append(st.Workers, h.runner.Status())
	}
	return st
}
