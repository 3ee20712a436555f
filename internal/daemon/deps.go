// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	Logger zerolog.Logger

	// ListenAddr enables the status server when non-empty.
	ListenAddr string

	// StatusHandler serves the status endpoints. Required with ListenAddr.
	StatusHandler http.Handler

	// ShutdownTimeout bounds the whole shutdown sequence, hooks included.
	ShutdownTimeout time.Duration
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.ListenAddr != "" && d.StatusHandler == nil {
		return ErrMissingStatusHandler
	}
	return nil
}
