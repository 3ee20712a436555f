// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldComponent     = "component"
	FieldEvent         = "event"
	FieldCorrelationID = "correlation_id"
	FieldSwapID        = "swap_id"

	// Stream fields
	FieldStream   = "stream"
	FieldURL      = "url"
	FieldAttempt  = "attempt"
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Config fields
	FieldPath    = "path"
	FieldVersion = "config_version"
	FieldStreams = "streams"
)
