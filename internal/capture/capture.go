// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capture opens network video streams and yields decoded JPEG frames.
package capture

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrOpenFailed is returned when a stream cannot be opened at all.
	ErrOpenFailed = errors.New("stream open failed")
	// ErrReadTimeout is returned when no frame arrives within the read timeout.
	ErrReadTimeout = errors.New("stream read timeout")
	// ErrStreamEnded is returned once the stream stops producing frames.
	ErrStreamEnded = errors.New("stream ended")
)

// Frame is one decoded still image.
type Frame struct {
	Data       []byte
	Seq        uint64
	CapturedAt time.Time
}

// Source opens streams by URL.
type Source interface {
	Open(ctx context.Context, url string) (Stream, error)
}

// Stream is an open connection to a video source.
//
// Next blocks until the next frame is decoded, the read timeout elapses or
// ctx is done. Close releases the connection and may be called more than once.
type Stream interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}
