// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sink persists captured frames.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/rtsnap/internal/capture"
	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/google/renameio/v2"
)

// ErrEmptyFrame is returned for frames without image data.
var ErrEmptyFrame = errors.New("empty frame")

// Sink stores the latest frame of a stream.
type Sink interface {
	Write(ctx context.Context, name string, frame capture.Frame) error
}

// FileSink writes one <name>.jpg per stream into a directory, replacing the
// previous image atomically.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed. Failing to do so is fatal for the daemon.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string { return s.dir }

// Path returns the image path for a stream name.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.dir, name+".jpg")
}

func (s *FileSink) Write(ctx context.Context, name string, frame capture.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(frame.Data) == 0 {
		return ErrEmptyFrame
	}

	path := s.Path(name)
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending image file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			xglog.FromContext(ctx).Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending image file")
		}
	}()

	if _, err := pendingFile.Write(frame.Data); err != nil {
		return fmt.Errorf("write image data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace image %s: %w", path, err)
	}
	return nil
}
