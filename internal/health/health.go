// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health provides liveness and readiness reporting for the daemon's
// status server.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	xglog "github.com/ManuGH/rtsnap/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is returned by both probes.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now()}
}

// RegisterChecker adds a checker consulted by readiness and verbose liveness.
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

func (m *Manager) run(ctx context.Context) (Status, map[string]CheckResult) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	if len(checkers) == 0 {
		return StatusHealthy, nil
	}

	overall := StatusHealthy
	checks := make(map[string]CheckResult, len(checkers))
	for _, c := range checkers {
		res := c.Check(ctx)
		checks[c.Name()] = res
		switch res.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return overall, checks
}

// Health is the liveness view: the process is alive as long as it answers.
// Component checks are only evaluated when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
	}
	if verbose {
		resp.Status, resp.Checks = m.run(ctx)
		resp.Ready = resp.Status != StatusUnhealthy
	}
	return resp
}

// Ready is the readiness view: any unhealthy check makes the daemon not ready.
// Degraded checks are reported but do not fail readiness.
func (m *Manager) Ready(ctx context.Context) Response {
	status, checks := m.run(ctx)
	return Response{
		Status:    status,
		Ready:     status != StatusUnhealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// ServeHealth handles HTTP liveness requests. It always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	m.write(w, r, "health", http.StatusOK, m.Health(r.Context(), verbose))
}

// ServeReady handles HTTP readiness requests: 200 when ready, 503 otherwise.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, "readiness", code, resp)
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, probe string, code int, resp Response) {
	logger := xglog.WithContext(r.Context(), xglog.WithComponent("health"))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, probe+".encode_error").Msg("failed to encode probe response")
		return
	}
	logger.Debug().
		Str(xglog.FieldEvent, probe+".checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("probe answered")
}
