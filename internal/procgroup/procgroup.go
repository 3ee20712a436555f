// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts decoder processes in their own process group and
// tears the whole group down again.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/rtsnap/internal/metrics"
)

// Set configures the command to start in a new process group.
// Mandatory for Kill and Terminate to reach grandchildren.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill sends sig to the process group of cmd. A process that already exited
// is not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return kill(cmd, sig)
}

// Terminate gracefully stops a process group: SIGTERM, wait up to grace for
// waitCh, then SIGKILL and wait again. It consumes and returns the value
// received from waitCh, which must deliver the result of cmd.Wait exactly once.
// It is safe to call on nil commands (returns nil).
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	metrics.IncProcTerminate("SIGTERM", signalResult(Kill(cmd, syscall.SIGTERM)))

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		metrics.IncProcWait(waitOutcome("", err))
		return err
	case <-timer.C:
	}

	metrics.IncProcTerminate("SIGKILL", signalResult(Kill(cmd, syscall.SIGKILL)))

	// Always drain waitCh so the process is reaped.
	err := <-waitCh
	metrics.IncProcWait(waitOutcome("forced_", err))
	return err
}

func signalResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}

func waitOutcome(prefix string, err error) string {
	if err == nil {
		return prefix + "exit0"
	}
	return prefix + "exit_nonzero"
}
