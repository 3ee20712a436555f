// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet window a burst of file events must be
// followed by before the configuration is reloaded.
const DefaultDebounce = 2 * time.Second

// ReloadStatus summarises the outcome of the most recent reload attempt.
type ReloadStatus struct {
	LastAttempt time.Time
	LastSuccess time.Time
	LastError   string
	Version     uint64
}

// Watcher observes the configuration file, debounces change bursts and
// publishes successfully parsed stream lists into a Store.
type Watcher struct {
	path     string
	store    *Store
	debounce time.Duration
	logger   zerolog.Logger

	// mu serialises reloads from the debounce timer and from manual triggers.
	mu     sync.Mutex
	status ReloadStatus

	started     chan struct{}
	startedOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the quiet window. Non-positive values are ignored.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger overrides the watcher logger.
func WithLogger(l zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher for the file at path that publishes into store.
func NewWatcher(path string, store *Store, opts ...WatcherOption) *Watcher {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		path = filepath.Join(dir, filepath.Base(path))
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		debounce: DefaultDebounce,
		logger:   xglog.WithComponent("config"),
		started:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string { return w.path }

// Started is closed once Run has registered the file system watch.
func (w *Watcher) Started() <-chan struct{} { return w.started }

// Status returns the outcome of the most recent reload.
func (w *Watcher) Status() ReloadStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Reload reads the file and publishes it when it parses and differs from the
// current snapshot. On failure the current snapshot stays active and the
// error is returned.
func (w *Watcher) Reload(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	logger := xglog.WithContext(ctx, w.logger)
	w.status.LastAttempt = time.Now()
	logger.Debug().Str(xglog.FieldEvent, "config.reload_start").Str(xglog.FieldPath, w.path).Msg("reloading configuration")

	streams, err := Load(w.path)
	if err != nil {
		w.status.LastError = err.Error()
		result := "invalid"
		if errors.Is(err, ErrConfigMissing) {
			result = "missing"
		}
		metrics.IncConfigReload(result)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Str(xglog.FieldPath, w.path).
			Uint64(xglog.FieldVersion, w.store.Current().Version).
			Msg("configuration reload failed, keeping previous configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	w.status.LastError = ""
	w.status.LastSuccess = w.status.LastAttempt

	prev := w.store.Current()
	next := NewSnapshot(streams)
	changes := Diff(prev, &next)
	if changes.Empty() && prev.Version > 0 {
		metrics.IncConfigReload("unchanged")
		logger.Info().
			Str(xglog.FieldEvent, "config.reload_unchanged").
			Uint64(xglog.FieldVersion, prev.Version).
			Msg("configuration unchanged")
		return nil
	}

	published := w.store.Publish(next)
	w.status.Version = published.Version
	metrics.IncConfigReload("success")
	metrics.SetConfigVersion(published.Version, published.Len())
	logChanges(logger, published, changes)
	return nil
}

func logChanges(logger zerolog.Logger, snap *Snapshot, changes ChangeSummary) {
	logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Uint64(xglog.FieldVersion, snap.Version).
		Int(xglog.FieldStreams, snap.Len()).
		Strs("added", changes.Added).
		Strs("removed", changes.Removed).
		Strs("changed", changes.Changed).
		Msg("configuration loaded")

	for _, def := range snap.Streams() {
		logger.Info().
			Str(xglog.FieldStream, def.Name).
			Str(xglog.FieldURL, xglog.RedactURL(def.URL)).
			Msg("stream configured")
	}
}

// Run watches the directory containing the configuration file and reloads
// after every burst of changes to the file. It blocks until ctx is done; a
// pending debounced reload is cancelled on return.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	// Watch the directory: editors replace files by rename, which drops a
	// watch placed on the file itself.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	w.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str(xglog.FieldPath, w.path).
		Dur("debounce", w.debounce).
		Msg("watching config file for changes")
	w.startedOnce.Do(func() { close(w.started) })

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			// Every event restarts the quiet window.
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			_ = w.Reload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}
