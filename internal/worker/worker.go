// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package worker runs the connect, capture and retry loop of a single stream.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/rtsnap/internal/capture"
	"github.com/ManuGH/rtsnap/internal/clock"
	"github.com/ManuGH/rtsnap/internal/config"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/metrics"
	"github.com/ManuGH/rtsnap/internal/sink"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBackoff         = 5 * time.Second
	DefaultCaptureInterval = time.Second
)

// Options tunes a Worker. Zero values select the defaults.
type Options struct {
	Backoff         time.Duration
	CaptureInterval time.Duration
	Clock           clock.Clock
	Logger          *zerolog.Logger
}

// Worker keeps the image of one stream fresh. It is single use: Run may be
// called once.
type Worker struct {
	def      config.StreamDefinition
	source   capture.Source
	sink     sink.Sink
	backoff  time.Duration
	interval time.Duration
	clock    clock.Clock
	logger   zerolog.Logger

	mu     sync.RWMutex
	status Status
}

func New(def config.StreamDefinition, source capture.Source, snk sink.Sink, opts Options) *Worker {
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.CaptureInterval <= 0 {
		opts.CaptureInterval = DefaultCaptureInterval
	}
	base := xglog.WithComponent("worker")
	if opts.Logger != nil {
		base = *opts.Logger
	}
	c := clock.OrReal(opts.Clock)

	return &Worker{
		def:      def,
		source:   source,
		sink:     snk,
		backoff:  opts.Backoff,
		interval: opts.CaptureInterval,
		clock:    c,
		logger: base.With().
			Str(xglog.FieldStream, def.Name).
			Str(xglog.FieldURL, xglog.RedactURL(def.URL)).
			Logger(),
		status: Status{Name: def.Name, URL: xglog.RedactURL(def.URL), State: StateConnecting, Since: c.Now()},
	}
}

// Definition returns the stream this worker serves.
func (w *Worker) Definition() config.StreamDefinition { return w.def }

// Run loops until ctx is cancelled: connect, stream, and after any failure
// wait the fixed backoff and connect again. Cancellation is observed after
// every frame pull and every backoff wait; no frame is written after that.
func (w *Worker) Run(ctx context.Context) {
	defer w.setState(StateStopped, nil)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		attempt++
		streamed, err := w.session(ctx, attempt)
		if ctx.Err() != nil {
			return
		}
		w.fail(err, attempt)
		if streamed {
			// A connection that produced frames starts a fresh retry series.
			attempt = 0
		}

		if !w.sleep(ctx, w.backoff) {
			return
		}
	}
}

// session opens the stream and pulls frames until it fails. It reports
// whether at least one frame was received.
func (w *Worker) session(ctx context.Context, attempt int) (bool, error) {
	w.setState(StateConnecting, nil)
	w.logger.Info().
		Str(xglog.FieldEvent, "worker.connecting").
		Int(xglog.FieldAttempt, attempt).
		Msg("connecting to stream")

	stream, err := w.source.Open(ctx, w.def.URL)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			w.logger.Warn().Err(err).Str(xglog.FieldEvent, "worker.close_failed").Msg("closing stream failed")
		}
	}()

	// The stream counts as connected only once it delivers a frame; an open
	// decoder with nothing to read is still connecting.
	limiter := rate.NewLimiter(rate.Every(w.interval), 1)
	connected := false
	for {
		frame, err := stream.Next(ctx)
		if ctx.Err() != nil {
			return connected, nil
		}
		if err != nil {
			return connected, err
		}

		if !connected {
			connected = true
			w.setState(StateStreaming, nil)
			w.logger.Info().Str(xglog.FieldEvent, "worker.connected").Msg("stream connected")
		}
		metrics.IncFrame(w.def.Name)

		// Frames arriving inside the capture interval are dropped; the next
		// one pulled after it elapses is the newest and gets written.
		now := w.clock.Now()
		if !limiter.AllowN(now, 1) {
			continue
		}
		w.write(ctx, frame, now)
	}
}

func (w *Worker) write(ctx context.Context, frame capture.Frame, now time.Time) {
	if err := w.sink.Write(ctx, w.def.Name, frame); err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.IncCapture(w.def.Name, false, now)
		w.mu.Lock()
		w.status.LastError = err.Error()
		w.mu.Unlock()
		w.logger.Warn().Err(err).Str(xglog.FieldEvent, "worker.write_failed").Msg("writing snapshot failed")
		return
	}

	metrics.IncCapture(w.def.Name, true, now)
	w.mu.Lock()
	w.status.LastCapture = now
	w.status.Captures++
	w.mu.Unlock()
	w.logger.Debug().Uint64("seq", frame.Seq).Msg("snapshot written")
}

func (w *Worker) fail(err error, attempt int) {
	if err == nil {
		err = capture.ErrStreamEnded
	}
	reason := failureReason(err)
	metrics.IncConnectFailure(w.def.Name, reason)

	w.mu.Lock()
	w.status.Failures++
	w.mu.Unlock()
	w.setState(StateDisconnected, err)

	w.logger.Warn().
		Err(err).
		Str(xglog.FieldEvent, "worker.disconnected").
		Str("reason", reason).
		Int(xglog.FieldAttempt, attempt).
		Dur("retry_in", w.backoff).
		Msg("stream unavailable, retrying")
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	t := w.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}

func (w *Worker) setState(next State, cause error) {
	w.mu.Lock()
	prev := w.status.State
	w.status.State = next
	w.status.Since = w.clock.Now()
	if cause != nil {
		w.status.LastError = cause.Error()
	}
	w.mu.Unlock()

	metrics.SetWorkerState(w.def.Name, next.String())
	if prev != next {
		w.logger.Debug().
			Str(xglog.FieldOldState, prev.String()).
			Str(xglog.FieldNewState, next.String()).
			Msg("worker state changed")
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, capture.ErrOpenFailed):
		return "open"
	case errors.Is(err, capture.ErrReadTimeout):
		return "timeout"
	case errors.Is(err, capture.ErrStreamEnded):
		return "ended"
	default:
		return "error"
	}
}
