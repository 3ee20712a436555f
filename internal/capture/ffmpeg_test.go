// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeDecoder writes an executable shell script that stands in for ffmpeg.
func fakeDecoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestSource(bin string, timeout time.Duration) *FFmpegSource {
	return NewFFmpegSource(FFmpegOptions{
		BinaryPath:  bin,
		OpenTimeout: timeout,
		ReadTimeout: timeout,
		StopGrace:   500 * time.Millisecond,
	})
}

func TestFFmpegSource_Args(t *testing.T) {
	src := NewFFmpegSource(FFmpegOptions{RTSPTransport: "tcp"})

	rtsp := src.Args("rtsp://cam/1")
	assert.Contains(t, rtsp, "-rtsp_transport")
	assert.Equal(t, "pipe:1", rtsp[len(rtsp)-1])

	assert.NotContains(t, src.Args("http://cam/mjpeg"), "-rtsp_transport")
}

func TestFFmpegStream_DeliversFrames(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bin := fakeDecoder(t, `while true; do printf '\377\330frame\377\331'; sleep 0.02; done`)
	st, err := newTestSource(bin, 2*time.Second).Open(context.Background(), "rtsp://cam/1")
	require.NoError(t, err)

	for want := uint64(1); want <= 3; want++ {
		f, err := st.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, f.Seq)
		assert.Equal(t, []byte("\xFF\xD8frame\xFF\xD9"), f.Data)
		assert.False(t, f.CapturedAt.IsZero())
	}

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
}

func TestFFmpegStream_EndedCarriesStderr(t *testing.T) {
	bin := fakeDecoder(t, `echo "Connection refused" >&2; exit 1`)
	st, err := newTestSource(bin, 2*time.Second).Open(context.Background(), "rtsp://cam/1")
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Next(context.Background())
	require.ErrorIs(t, err, ErrStreamEnded)
	assert.Contains(t, err.Error(), "Connection refused")
}

func TestFFmpegStream_ReadTimeout(t *testing.T) {
	bin := fakeDecoder(t, `sleep 30`)
	st, err := newTestSource(bin, 100*time.Millisecond).Open(context.Background(), "rtsp://cam/1")
	require.NoError(t, err)

	_, err = st.Next(context.Background())
	require.ErrorIs(t, err, ErrReadTimeout)

	start := time.Now()
	require.NoError(t, st.Close())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFFmpegStream_NextHonoursContext(t *testing.T) {
	bin := fakeDecoder(t, `sleep 30`)
	st, err := newTestSource(bin, time.Minute).Open(context.Background(), "rtsp://cam/1")
	require.NoError(t, err)
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = st.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFFmpegSource_OpenFailures(t *testing.T) {
	src := newTestSource(filepath.Join(t.TempDir(), "missing"), time.Second)
	_, err := src.Open(context.Background(), "rtsp://cam/1")
	assert.ErrorIs(t, err, ErrOpenFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestSource("/bin/true", time.Second).Open(ctx, "rtsp://cam/1")
	assert.ErrorIs(t, err, context.Canceled)
}
