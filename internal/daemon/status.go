// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/rtsnap/internal/health"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/metrics"
	"github.com/ManuGH/rtsnap/internal/supervisor"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewStatusRouter builds the read-only status API:
//
//	GET /healthz  liveness (always 200, ?verbose=true runs the checks)
//	GET /readyz   readiness (503 while a check is unhealthy)
//	GET /status   worker set and per-stream state
//	GET /metrics  Prometheus metrics
func NewStatusRouter(hm *health.Manager, status func() supervisor.Status) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(observe)

	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			xglog.FromContext(req.Context()).Error().Err(err).Msg("failed to encode status response")
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// observe records request latency by route pattern and carries the request
// id into the log context.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := xglog.ContextWithCorrelationID(r.Context(), chimw.GetReqID(r.Context()))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTP(r.Method, path, status, time.Since(start))
	})
}
