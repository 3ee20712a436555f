// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "rtsnap_http_request_duration_seconds",
	Help:    "Status server request latencies in seconds",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path", "status"})

// ObserveHTTP records one status server request. path must be a route
// pattern, never the raw URL.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}
