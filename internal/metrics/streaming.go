// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus instrumentation for the capture daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerStates lists every state label used by the worker state gauge.
var WorkerStates = []string{"connecting", "streaming", "disconnected", "stopped"}

var (
	// WorkerState is 1 for the current state of each stream worker and 0 otherwise.
	WorkerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rtsnap_worker_state",
		Help: "Current connection state per stream (1 = active state)",
	}, []string{"stream", "state"})

	// ConnectFailuresTotal counts failed connection attempts and lost connections.
	ConnectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_connect_failures_total",
		Help: "Total connection failures per stream by reason",
	}, []string{"stream", "reason"})

	// FramesTotal counts decoded frames pulled from a stream, written or not.
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_frames_total",
		Help: "Total decoded frames pulled per stream",
	}, []string{"stream"})

	// CapturesTotal counts snapshot writes by result.
	CapturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_captures_total",
		Help: "Total snapshot image writes per stream by result",
	}, []string{"stream", "result"})

	// LastCaptureTimestamp records the unix time of the last successful write.
	LastCaptureTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rtsnap_last_capture_timestamp_seconds",
		Help: "Unix timestamp of the last successful snapshot write per stream",
	}, []string{"stream"})
)

// SetWorkerState marks state as the current state of stream.
func SetWorkerState(stream, state string) {
	for _, s := range WorkerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		WorkerState.WithLabelValues(stream, s).Set(v)
	}
}

// ForgetStream drops the per-stream series of a stream that is no longer configured.
func ForgetStream(stream string) {
	for _, s := range WorkerStates {
		WorkerState.DeleteLabelValues(stream, s)
	}
	LastCaptureTimestamp.DeleteLabelValues(stream)
}

// IncConnectFailure records a connection failure for stream.
func IncConnectFailure(stream, reason string) {
	ConnectFailuresTotal.WithLabelValues(stream, reason).Inc()
}

// IncFrame records one decoded frame.
func IncFrame(stream string) {
	FramesTotal.WithLabelValues(stream).Inc()
}

// IncCapture records a snapshot write outcome.
func IncCapture(stream string, success bool, at time.Time) {
	result := "error"
	if success {
		result = "success"
		LastCaptureTimestamp.WithLabelValues(stream).Set(float64(at.Unix()))
	}
	CapturesTotal.WithLabelValues(stream, result).Inc()
}
