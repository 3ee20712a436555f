// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package supervisor owns the set of running stream workers and replaces it
// as a whole whenever the configuration changes or a restart is scheduled.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/rtsnap/internal/config"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/metrics"
	"github.com/ManuGH/rtsnap/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStopTimeout is how long a swap waits for the old worker set before
// reporting the stragglers. The swap keeps waiting afterwards.
const DefaultStopTimeout = 30 * time.Second

var (
	// ErrClosed is returned by swaps requested after Shutdown.
	ErrClosed = errors.New("supervisor closed")
	// ErrSwapIncomplete is returned when the caller gave up waiting for the
	// previous worker set to stop. Nothing new was started.
	ErrSwapIncomplete = errors.New("worker set swap incomplete")
)

// Swap reasons.
const (
	ReasonConfig   = "config"
	ReasonSchedule = "schedule"
	ReasonShutdown = "shutdown"
)

// Runner is one stream's unit of work. Run must return once ctx is done.
type Runner interface {
	Run(ctx context.Context)
	Status() worker.Status
}

// Factory builds the runner for a stream definition.
type Factory func(def config.StreamDefinition) Runner

// WorkerFactory returns a Factory that builds capture workers.
func WorkerFactory(build func(def config.StreamDefinition) *worker.Worker) Factory {
	return func(def config.StreamDefinition) Runner { return build(def) }
}

type Options struct {
	StopTimeout time.Duration
	Logger      *zerolog.Logger
}

type handle struct {
	def    config.StreamDefinition
	runner Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor runs at most one worker per stream name. Swaps are serialised
// and never start a new set before every worker of the previous set has
// returned.
type Supervisor struct {
	store       *config.Store
	factory     Factory
	stopTimeout time.Duration
	logger      zerolog.Logger

	base       context.Context
	baseCancel context.CancelFunc

	// mu serialises swaps and guards the fields below.
	mu      sync.Mutex
	handles []*handle
	applied uint64
	closed  bool

	viewMu sync.RWMutex
	view   view
}

type view struct {
	handles  []*handle
	version  uint64
	lastSwap time.Time
	swaps    uint64
}

func New(store *config.Store, factory Factory, opts Options) *Supervisor {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	logger := xglog.WithComponent("supervisor")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	base, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		store:       store,
		factory:     factory,
		stopTimeout: opts.StopTimeout,
		logger:      logger,
		base:        base,
		baseCancel:  cancel,
	}
}

// ApplySnapshot stops every running worker, waits for all of them, then
// starts one worker per stream of snap. Re-applying the active version
// restarts the same set; an older version than the active one is ignored.
// An empty snapshot leaves nothing running.
func (s *Supervisor) ApplySnapshot(ctx context.Context, snap *config.Snapshot) error {
	return s.swap(ctx, ReasonConfig, func() *config.Snapshot { return snap })
}

// Restart re-applies the store's current snapshot unchanged.
func (s *Supervisor) Restart(ctx context.Context) error {
	return s.swap(ctx, ReasonSchedule, s.store.Current)
}

// Follow applies every snapshot delivered by sub until ctx is done or sub is
// closed. Versions that are not newer than the active one are skipped.
func (s *Supervisor) Follow(ctx context.Context, sub *config.Subscription) error {
	for {
		snap, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, config.ErrSubscriptionClosed) {
				return nil
			}
			return err
		}
		if applied := s.Applied(); snap.Version <= applied {
			s.logger.Debug().
				Uint64(xglog.FieldVersion, snap.Version).
				Uint64("applied_version", applied).
				Msg("skipping already applied snapshot")
			continue
		}
		if err := s.ApplySnapshot(ctx, snap); err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Uint64(xglog.FieldVersion, snap.Version).Msg("applying snapshot failed")
		}
	}
}

// Shutdown stops every worker and rejects further swaps. It returns
// ErrSwapIncomplete if ctx ends first; calling it again keeps waiting.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	logger := s.logger.With().Str("reason", ReasonShutdown).Logger()
	if err := s.stopAllLocked(ctx, logger, nil); err != nil {
		return err
	}
	s.baseCancel()
	s.publishViewLocked(false)
	logger.Info().Str(xglog.FieldEvent, "supervisor.stopped").Msg("all workers stopped")
	return nil
}

// Applied returns the version of the active snapshot.
func (s *Supervisor) Applied() uint64 {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view.version
}

func (s *Supervisor) swap(ctx context.Context, reason string, pick func() *config.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	snap := pick()
	if snap == nil {
		empty := config.NewSnapshot(nil)
		empty.Version = s.applied
		snap = &empty
	}
	if snap.Version < s.applied {
		s.logger.Info().
			Str("reason", reason).
			Uint64(xglog.FieldVersion, snap.Version).
			Uint64("applied_version", s.applied).
			Msg("ignoring stale snapshot")
		return nil
	}

	swapID := uuid.NewString()
	ctx = xglog.ContextWithCorrelationID(ctx, swapID)
	logger := s.logger.With().
		Str(xglog.FieldSwapID, swapID).
		Str("reason", reason).
		Uint64(xglog.FieldVersion, snap.Version).
		Logger()

	started := time.Now()
	logger.Info().
		Str(xglog.FieldEvent, "supervisor.swap_start").
		Int("stopping", len(s.handles)).
		Int(xglog.FieldStreams, snap.Len()).
		Msg("swapping worker set")

	if err := s.stopAllLocked(ctx, logger, snap); err != nil {
		metrics.ObserveSwap(reason, false, time.Since(started))
		return err
	}
	s.startAllLocked(snap)
	s.applied = snap.Version
	s.publishViewLocked(true)

	elapsed := time.Since(started)
	metrics.ObserveSwap(reason, true, elapsed)
	ev := logger.Info()
	if snap.Len() == 0 {
		ev = logger.Warn()
	}
	ev.Str(xglog.FieldEvent, "supervisor.swap_done").
		Strs("workers", snap.Names()).
		Dur("took", elapsed).
		Msg("worker set swapped")
	return nil
}

// stopAllLocked cancels the running set and waits for every worker. Workers
// slower than the stop timeout are reported and still waited for; only ctx
// ending aborts the wait, leaving the cancelled set in place.
func (s *Supervisor) stopAllLocked(ctx context.Context, logger zerolog.Logger, next *config.Snapshot) error {
	for _, h := range s.handles {
		h.cancel()
	}

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()
	expired := timer.C

	for _, h := range s.handles {
		for waiting := true; waiting; {
			select {
			case <-h.done:
				waiting = false
			case <-expired:
				expired = nil
				running := s.runningLocked()
				for range running {
					metrics.IncSlowStop()
				}
				logger.Error().
					Str(xglog.FieldEvent, "supervisor.stop_timeout").
					Strs("running", running).
					Dur("timeout", s.stopTimeout).
					Msg("workers did not acknowledge cancellation in time; swap is blocked until they do")
			case <-ctx.Done():
				running := s.runningLocked()
				return fmt.Errorf("%w: %d workers still running: %w", ErrSwapIncomplete, len(running), ctx.Err())
			}
		}
	}

	keep := make(map[string]bool)
	for _, name := range next.Names() {
		keep[name] = true
	}
	for _, h := range s.handles {
		if !keep[h.def.Name] {
			metrics.ForgetStream(h.def.Name)
		}
	}
	s.handles = nil
	metrics.SetActiveWorkers(0)
	return nil
}

func (s *Supervisor) startAllLocked(snap *config.Snapshot) {
	defs := snap.Streams()
	handles := make([]*handle, 0, len(defs))
	for _, def := range defs {
		ctx, cancel := context.WithCancel(s.base)
		h := &handle{
			def:    def,
			runner: s.factory(def),
			cancel: cancel,
			done:   make(chan struct{}),
		}
		go func() {
			defer close(h.done)
			h.runner.Run(ctx)
		}()
		handles = append(handles, h)
	}
	s.handles = handles
	metrics.SetActiveWorkers(len(handles))
}

func (s *Supervisor) runningLocked() []string {
	var names []string
	for _, h := range s.handles {
		select {
		case <-h.done:
		default:
			names = append(names, h.def.Name)
		}
	}
	return names
}

func (s *Supervisor) publishViewLocked(swapped bool) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	s.view.handles = append([]*handle(nil), s.handles...)
	s.view.version = s.applied
	if swapped {
		s.view.swaps++
		s.view.lastSwap = time.Now()
	}
}
