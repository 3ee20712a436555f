// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

var (
	// ErrConfigMissing is returned when the configuration file does not exist.
	// A default file may have been written in its place; callers treat this as
	// "nothing to supervise yet".
	ErrConfigMissing = errors.New("config file missing")

	// ErrConfigInvalid classifies malformed or incomplete configuration files.
	// The previously published snapshot stays active.
	ErrConfigInvalid = errors.New("config invalid")
)
