// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_TimerFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)
	timer := f.NewTimer(5 * time.Second)

	f.Advance(4 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	f.Advance(time.Second)
	select {
	case got := <-timer.C():
		assert.Equal(t, start.Add(5*time.Second), got)
	default:
		t.Fatal("timer did not fire at deadline")
	}
}

func TestFake_StopAndReset(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	timer := f.NewTimer(time.Second)

	require.True(t, timer.Stop())
	f.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}

	assert.False(t, timer.Reset(time.Second))
	f.Advance(time.Second)
	select {
	case <-timer.C():
	default:
		t.Fatal("reset timer did not fire")
	}
}

func TestFake_BlockUntilTimers(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := f.NewTimer(time.Minute)
		<-timer.C()
	}()

	f.BlockUntilTimers(1)
	f.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not observe timer")
	}
}

func TestOrReal(t *testing.T) {
	assert.IsType(t, Real{}, OrReal(nil))
	f := NewFake(time.Now())
	assert.Same(t, f, OrReal(f))
}
