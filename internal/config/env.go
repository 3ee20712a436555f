// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/rtsnap/internal/log"
	"github.com/rs/zerolog"
)

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logger.Debug().
			Str("key", key).
			Str("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", "environment").
		Msg("using environment variable")
	return value
}

// ParseBool reads a boolean from environment variable or returns default value.
// Accepted values follow strconv.ParseBool; anything else falls back to the default.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Bool("value", b).
		Str("source", "environment").
		Msg("using environment variable")
	return b
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// A bare integer is interpreted as seconds. It falls back to default on parse errors.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		logger.Debug().
			Str("key", key).
			Dur("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	raw := strings.TrimSpace(v)
	if d, err := time.ParseDuration(raw); err == nil {
		logger.Debug().
			Str("key", key).
			Dur("value", d).
			Str("source", "environment").
			Msg("using environment variable")
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	logger.Warn().
		Str("key", key).
		Str("value", v).
		Dur("default", defaultValue).
		Msg("invalid duration in environment variable, using default")
	return defaultValue
}
