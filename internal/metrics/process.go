// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_proc_terminate_total",
		Help: "Signals sent to decoder process groups by signal and result",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsnap_proc_wait_total",
		Help: "Decoder process exits observed during termination by outcome",
	}, []string{"outcome"})
)

// IncProcTerminate records a termination signal sent to a decoder process group.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records how a terminated decoder process exited.
func IncProcWait(outcome string) {
	procWaitTotal.WithLabelValues(outcome).Inc()
}
