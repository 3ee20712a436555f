// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwapsTotal counts worker-set swaps by trigger and result.
	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_swaps_total",
		Help: "Total worker set swaps by reason and result",
	}, []string{"reason", "result"})

	// SwapDuration tracks how long the stop-all/start-all transition takes.
	SwapDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rtsnap_swap_duration_seconds",
		Help:    "Duration of worker set swaps",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"reason"})

	// SlowStopsTotal counts workers that exceeded the stop timeout during a swap.
	SlowStopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtsnap_slow_worker_stops_total",
		Help: "Workers that did not acknowledge cancellation within the stop timeout",
	})

	// ActiveWorkers is the size of the current worker set.
	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtsnap_active_workers",
		Help: "Number of running stream workers",
	})

	// ConfigReloadsTotal counts configuration reload attempts by result.
	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_config_reloads_total",
		Help: "Configuration reloads by result (success, unchanged, invalid, missing)",
	}, []string{"result"})

	// ConfigVersion is the version of the most recently published snapshot.
	ConfigVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtsnap_config_version",
		Help: "Version of the active configuration snapshot",
	})

	// ConfiguredStreams is the number of streams in the active snapshot.
	ConfiguredStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtsnap_configured_streams",
		Help: "Number of streams in the active configuration snapshot",
	})
)

// ObserveSwap records one swap.
func ObserveSwap(reason string, success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "incomplete"
	}
	SwapsTotal.WithLabelValues(reason, result).Inc()
	SwapDuration.WithLabelValues(reason).Observe(d.Seconds())
}

// IncSlowStop records a worker that missed the stop deadline.
func IncSlowStop() { SlowStopsTotal.Inc() }

// SetActiveWorkers sets the running worker count.
func SetActiveWorkers(n int) { ActiveWorkers.Set(float64(n)) }

// IncConfigReload records a reload attempt outcome.
func IncConfigReload(result string) { ConfigReloadsTotal.WithLabelValues(result).Inc() }

// SetConfigVersion records the active snapshot version and its size.
func SetConfigVersion(version uint64, streams int) {
	ConfigVersion.Set(float64(version))
	ConfiguredStreams.Set(float64(streams))
}
