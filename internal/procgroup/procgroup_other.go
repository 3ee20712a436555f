// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !unix

package procgroup

import (
	"os/exec"
	"syscall"
)

func set(*exec.Cmd) {}

// Without process groups only the root process can be killed; SIGTERM has no
// portable equivalent, so it is a no-op and Terminate escalates after grace.
func kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if sig == syscall.SIGKILL {
		return cmd.Process.Kill()
	}
	return nil
}
