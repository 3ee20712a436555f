// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/rtsnap/internal/schedule"
)

// Runtime holds the process settings that are not part of the hot-reloaded
// stream list. Changing them requires a restart.
type Runtime struct {
	ConfigPath string
	OutputDir  string

	Debounce        time.Duration
	Backoff         time.Duration
	CaptureInterval time.Duration
	ReadTimeout     time.Duration
	OpenTimeout     time.Duration
	StopTimeout     time.Duration

	// RestartAt is a local "HH:MM" wall-clock time; empty disables the daily restart.
	RestartAt string

	FFmpegPath    string
	RTSPTransport string

	// ListenAddr enables the status server when non-empty.
	ListenAddr string

	ExitOnMissingConfig bool
}

// Defaults for Runtime.
const (
	DefaultConfigFile      = "config.json"
	DefaultBackoff         = 5 * time.Second
	DefaultCaptureInterval = time.Second
	DefaultReadTimeout     = 10 * time.Second
	DefaultOpenTimeout     = 10 * time.Second
	DefaultStopTimeout     = 30 * time.Second
	DefaultRestartAt       = "03:00"
)

// LoadRuntime reads runtime settings from the environment. configPath is the
// stream configuration file; OutputDir defaults to its directory.
func LoadRuntime(configPath string) Runtime {
	if strings.TrimSpace(configPath) == "" {
		configPath = ParseString("RTSNAP_CONFIG", DefaultConfigFile)
	}
	return Runtime{
		ConfigPath:          configPath,
		OutputDir:           ParseString("RTSNAP_OUTPUT_DIR", filepath.Dir(configPath)),
		Debounce:            ParseDuration("RTSNAP_DEBOUNCE", DefaultDebounce),
		Backoff:             ParseDuration("RTSNAP_BACKOFF", DefaultBackoff),
		CaptureInterval:     ParseDuration("RTSNAP_CAPTURE_INTERVAL", DefaultCaptureInterval),
		ReadTimeout:         ParseDuration("RTSNAP_READ_TIMEOUT", DefaultReadTimeout),
		OpenTimeout:         ParseDuration("RTSNAP_OPEN_TIMEOUT", DefaultOpenTimeout),
		StopTimeout:         ParseDuration("RTSNAP_STOP_TIMEOUT", DefaultStopTimeout),
		RestartAt:           ParseString("RTSNAP_RESTART_AT", DefaultRestartAt),
		FFmpegPath:          ParseString("RTSNAP_FFMPEG_PATH", "ffmpeg"),
		RTSPTransport:       ParseString("RTSNAP_RTSP_TRANSPORT", "tcp"),
		ListenAddr:          ParseString("RTSNAP_LISTEN", ""),
		ExitOnMissingConfig: ParseBool("RTSNAP_EXIT_ON_MISSING_CONFIG", false),
	}
}

// Validate rejects settings the daemon cannot run with.
func (r Runtime) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ConfigPath) == "" {
		errs = append(errs, errors.New("config path is empty"))
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		errs = append(errs, errors.New("output dir is empty"))
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"debounce", r.Debounce},
		{"backoff", r.Backoff},
		{"capture interval", r.CaptureInterval},
		{"read timeout", r.ReadTimeout},
		{"open timeout", r.OpenTimeout},
		{"stop timeout", r.StopTimeout},
	}
	for _, v := range durations {
		if v.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", v.name, v.d))
		}
	}
	if r.RestartAt != "" {
		if _, err := schedule.ParseTimeOfDay(r.RestartAt); err != nil {
			errs = append(errs, fmt.Errorf("restart time: %w", err))
		}
	}
	switch r.RTSPTransport {
	case "tcp", "udp", "":
	default:
		errs = append(errs, fmt.Errorf("rtsp transport must be tcp or udp, got %q", r.RTSPTransport))
	}
	return errors.Join(errs...)
}
