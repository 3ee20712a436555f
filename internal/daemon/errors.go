// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when logger is not provided
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingManager is returned when a daemon app is created without a manager.
	ErrMissingManager = errors.New("manager is required")

	// ErrMissingSupervisor is returned when an app has no supervisor to drive.
	ErrMissingSupervisor = errors.New("supervisor is required")

	// ErrMissingStatusHandler is returned when a listen address has no handler to serve.
	ErrMissingStatusHandler = errors.New("status handler is required when listening")

	// ErrManagerNotStarted is returned when trying to shutdown a manager that hasn't started
	ErrManagerNotStarted = errors.New("manager not started")
)
