// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schedule fires a callback once a day at a fixed local wall-clock time.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/rtsnap/internal/clock"
	"github.com/ManuGH/rtsnap/internal/log"
	"github.com/rs/zerolog"
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// NextRestart returns the first instant strictly after now whose local
// wall-clock time in now's location equals at. When now is exactly at the
// target the result is the following day.
func NextRestart(now time.Time, at TimeOfDay) time.Time {
	y, mo, d := now.Date()
	next := time.Date(y, mo, d, at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, mo, d+1, at.Hour, at.Minute, 0, 0, now.Location())
	}
	return next
}

// Scheduler invokes a callback every day at a fixed time of day.
type Scheduler struct {
	at     TimeOfDay
	clock  clock.Clock
	logger zerolog.Logger
}

// New creates a scheduler firing daily at at. A nil clock uses real time.
func New(at TimeOfDay, c clock.Clock) *Scheduler {
	return &Scheduler{
		at:     at,
		clock:  clock.OrReal(c),
		logger: log.WithComponent("scheduler"),
	}
}

// Run sleeps until the next occurrence, calls fire, and repeats until ctx is
// done. fire runs on the scheduler goroutine; the next sleep is computed
// after it returns.
func (s *Scheduler) Run(ctx context.Context, fire func(context.Context)) error {
	var last time.Time
	for {
		now := s.clock.Now()
		// A wall clock stepped backwards must not fire the same target twice.
		base := now
		if !last.IsZero() && !base.After(last) {
			base = last
		}
		next := NextRestart(base, s.at)
		last = next
		s.logger.Info().
			Str(log.FieldEvent, "scheduler.next_restart").
			Time("at", next).
			Dur("in", next.Sub(now)).
			Msg("scheduled restart")

		timer := s.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Str(log.FieldEvent, "scheduler.stopped").Msg("restart scheduler stopped")
			return nil
		case <-timer.C():
		}

		s.logger.Info().Str(log.FieldEvent, "scheduler.fire").Msg("daily restart triggered")
		fire(ctx)
	}
}
