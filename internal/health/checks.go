// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"

	"github.com/ManuGH/rtsnap/internal/config"
	"github.com/ManuGH/rtsnap/internal/supervisor"
	"github.com/ManuGH/rtsnap/internal/worker"
)

// DirChecker reports whether the output directory accepts new files.
type DirChecker struct {
	name string
	path string
}

func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(context.Context) CheckResult {
	if err := CheckWritableDir(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// ConfigChecker reports the outcome of the configuration reloads.
type ConfigChecker struct {
	status func() config.ReloadStatus
}

func NewConfigChecker(status func() config.ReloadStatus) *ConfigChecker {
	return &ConfigChecker{status: status}
}

func (c *ConfigChecker) Name() string { return "config" }

func (c *ConfigChecker) Check(context.Context) CheckResult {
	st := c.status()
	switch {
	case st.LastSuccess.IsZero():
		return CheckResult{Status: StatusUnhealthy, Error: st.LastError, Message: "no configuration loaded yet"}
	case st.LastError != "":
		return CheckResult{
			Status:  StatusDegraded,
			Error:   st.LastError,
			Message: fmt.Sprintf("last reload failed, version %d still active", st.Version),
		}
	default:
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("version %d active", st.Version)}
	}
}

// WorkersChecker summarises the supervised worker set. Streams that are not
// connected degrade the report; they never make the daemon unready.
type WorkersChecker struct {
	status func() supervisor.Status
}

func NewWorkersChecker(status func() supervisor.Status) *WorkersChecker {
	return &WorkersChecker{status: status}
}

func (c *WorkersChecker) Name() string { return "workers" }

func (c *WorkersChecker) Check(context.Context) CheckResult {
	st := c.status()
	if st.Closed {
		return CheckResult{Status: StatusUnhealthy, Message: "supervisor stopped"}
	}
	if len(st.Workers) == 0 {
		return CheckResult{Status: StatusHealthy, Message: "no streams configured"}
	}

	streaming := 0
	for _, w := range st.Workers {
		if w.State == worker.StateStreaming {
			streaming++
		}
	}
	msg := fmt.Sprintf("%d/%d streaming", streaming, len(st.Workers))
	if streaming < len(st.Workers) {
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}
