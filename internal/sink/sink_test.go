// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/rtsnap/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WriteReplaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFileSink(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "cam", capture.Frame{Data: []byte("first")}))
	require.NoError(t, s.Write(ctx, "cam", capture.Frame{Data: []byte("second")}))

	data, err := os.ReadFile(filepath.Join(dir, "cam.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cam.jpg", entries[0].Name())
}

func TestFileSink_Rejects(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Write(context.Background(), "cam", capture.Frame{}), ErrEmptyFrame)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, "cam", capture.Frame{Data: []byte("x")}), context.Canceled)
	assert.NoFileExists(t, s.Path("cam"))
}

func TestNewFileSink_Unwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewFileSink(filepath.Join(file, "sub"))
	assert.Error(t, err)

	_, err = NewFileSink("")
	assert.Error(t, err)
}
