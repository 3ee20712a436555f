// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ManuGH/rtsnap/internal/config"
	xglog "github.com/ManuGH/rtsnap/internal/log"
)

// PerformStartupChecks validates the environment before any worker starts.
// Only an unusable output directory is an error; a missing decoder binary is
// reported and left to the workers' retry loop.
func PerformStartupChecks(_ context.Context, rt config.Runtime) error {
	logger := xglog.WithComponent("startup-check")

	if err := CheckWritableDir(rt.OutputDir); err != nil {
		return fmt.Errorf("output directory check failed: %w", err)
	}
	logger.Info().Str(xglog.FieldPath, rt.OutputDir).Msg("output directory is writable")

	if path, err := exec.LookPath(rt.FFmpegPath); err != nil {
		logger.Warn().Err(err).Str("ffmpeg", rt.FFmpegPath).Msg("ffmpeg binary not found; streams will keep retrying")
	} else {
		logger.Info().Str("ffmpeg", path).Msg("ffmpeg binary available")
	}
	return nil
}

// CheckWritableDir verifies that path is a directory a file can be created in.
func CheckWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	f, err := os.CreateTemp(path, ".write_test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	return nil
}
