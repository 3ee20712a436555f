// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/rtsnap/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "03:00", want: TimeOfDay{3, 0}},
		{in: "3:05", want: TimeOfDay{3, 5}},
		{in: " 23:59 ", want: TimeOfDay{23, 59}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func TestNextRestart(t *testing.T) {
	at := TimeOfDay{Hour: 3}
	loc := time.UTC

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before target same day",
			now:  time.Date(2026, 5, 10, 1, 30, 0, 0, loc),
			want: time.Date(2026, 5, 10, 3, 0, 0, 0, loc),
		},
		{
			name: "after target rolls to tomorrow",
			now:  time.Date(2026, 5, 10, 14, 0, 0, 0, loc),
			want: time.Date(2026, 5, 11, 3, 0, 0, 0, loc),
		},
		{
			name: "exactly at target rolls to tomorrow",
			now:  time.Date(2026, 5, 10, 3, 0, 0, 0, loc),
			want: time.Date(2026, 5, 11, 3, 0, 0, 0, loc),
		},
		{
			name: "one nanosecond before target",
			now:  time.Date(2026, 5, 10, 2, 59, 59, 999999999, loc),
			want: time.Date(2026, 5, 10, 3, 0, 0, 0, loc),
		},
		{
			name: "month boundary",
			now:  time.Date(2026, 1, 31, 23, 0, 0, 0, loc),
			want: time.Date(2026, 2, 1, 3, 0, 0, 0, loc),
		},
		{
			name: "year boundary",
			now:  time.Date(2026, 12, 31, 3, 0, 1, 0, loc),
			want: time.Date(2027, 1, 1, 3, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRestart(tt.now, at)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestNextRestart_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 7, 1, 4, 0, 0, 0, loc)
	got := NextRestart(now, TimeOfDay{Hour: 3})
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 3, got.Hour())
	assert.Equal(t, 2, got.Day())
}

func TestScheduler_FiresDailyAndStops(t *testing.T) {
	start := time.Date(2026, 5, 10, 2, 0, 0, 0, time.UTC)
	fc := clock.NewFake(start)
	s := New(TimeOfDay{Hour: 3}, fc)

	fired := make(chan time.Time, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context) { fired <- fc.Now() })
	}()

	fc.BlockUntilTimers(1)
	fc.Advance(59 * time.Minute)
	select {
	case <-fired:
		t.Fatal("fired before target")
	default:
	}

	fc.Advance(time.Minute)
	select {
	case at := <-fired:
		assert.Equal(t, time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC), at)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not fire at 03:00")
	}

	fc.BlockUntilTimers(1)
	fc.Advance(24 * time.Hour)
	select {
	case at := <-fired:
		assert.Equal(t, time.Date(2026, 5, 11, 3, 0, 0, 0, time.UTC), at)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not fire on the next day")
	}

	fc.BlockUntilTimers(1)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}
}

func TestScheduler_ClockStepBackDoesNotRefire(t *testing.T) {
	start := time.Date(2026, 5, 10, 2, 59, 0, 0, time.UTC)
	fc := clock.NewFake(start)
	s := New(TimeOfDay{Hour: 3}, fc)

	fired := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx, func(context.Context) { fired <- struct{}{} }) }()

	fc.BlockUntilTimers(1)
	fc.Advance(time.Minute)
	<-fired

	// Wall clock steps back one second after the fire.
	fc.BlockUntilTimers(1)
	fc.Set(start.Add(59 * time.Second))
	fc.Advance(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("same target fired twice after clock step")
	case <-time.After(50 * time.Millisecond):
	}
}
