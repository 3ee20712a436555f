// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the configuration watcher, the restart scheduler and
// the stream supervisor into one process lifecycle.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/rtsnap/internal/config"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/schedule"
	"github.com/ManuGH/rtsnap/internal/supervisor"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (watcher, reload wiring,
// scheduler) and delegates server management and ordered shutdown to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	store        *config.Store
	watcher      *config.Watcher
	supervisor   *supervisor.Supervisor
	scheduler    *schedule.Scheduler
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. watcher and scheduler are optional.
func NewApp(logger zerolog.Logger, manager Manager, store *config.Store, watcher *config.Watcher,
	sup *supervisor.Supervisor, sched *schedule.Scheduler) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		store:        store,
		watcher:      watcher,
		supervisor:   sup,
		scheduler:    sched,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs. On return every worker has stopped, the
// watcher's pending reload is dropped and the scheduler is no longer waiting.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.supervisor == nil || a.store == nil {
		return ErrMissingSupervisor
	}

	// The supervisor is stopped by the manager's shutdown, after the status
	// server so probes keep answering until the end.
	a.manager.RegisterShutdownHook("supervisor", a.supervisor.Shutdown)

	g, ctx := errgroup.WithContext(ctx)

	// Subscribe before applying the current snapshot so no publish between
	// the two is lost. Follow skips what was already applied.
	sub := a.store.Subscribe()
	if cur := a.store.Current(); cur.Version > 0 {
		if err := a.supervisor.ApplySnapshot(ctx, cur); err != nil {
			a.logger.Error().Err(err).Str("event", "supervisor.initial_apply_failed").Msg("failed to start initial worker set")
		}
	} else {
		a.logger.Warn().Str("event", "supervisor.idle").Msg("no configuration loaded, supervising nothing until the file becomes valid")
	}

	g.Go(func() error {
		defer sub.Close()
		return a.supervisor.Follow(ctx, sub)
	})

	// Config watcher is best-effort: the daemon keeps running the current
	// set without hot reload if the watch cannot be established.
	if a.watcher != nil {
		g.Go(func() error {
			if err := a.watcher.Run(ctx); err != nil {
				a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("config watcher stopped, hot reload disabled")
			}
			return nil
		})
	}

	// SIGHUP trigger for manual reload.
	if a.watcher != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					reloadID := uuid.NewString()
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Str(xglog.FieldCorrelationID, reloadID).
						Msg("received reload signal, reloading config")
					// Failures are logged by the watcher.
					_ = a.watcher.Reload(xglog.ContextWithCorrelationID(ctx, reloadID))
				}
			}
		})
	}

	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(ctx, func(ctx context.Context) {
				if err := a.supervisor.Restart(ctx); err != nil {
					a.logger.Error().Err(err).Str("event", "scheduler.restart_failed").Msg("scheduled restart failed")
				}
			})
		})
	}

	// Main server lifecycle; returns after the shutdown hooks ran.
	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
