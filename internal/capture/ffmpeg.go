// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	xglog "github.com/ManuGH/rtsnap/internal/log"
	"github.com/ManuGH/rtsnap/internal/procgroup"
	"github.com/rs/zerolog"
)

const (
	defaultStopGrace = 2 * time.Second
	maxFrameSize     = 32 << 20
	stderrLines      = 50
)

// FFmpegOptions configures an FFmpegSource.
type FFmpegOptions struct {
	BinaryPath    string
	RTSPTransport string
	// OpenTimeout bounds the wait for the first frame of a connection.
	OpenTimeout time.Duration
	// ReadTimeout bounds the wait for every later frame.
	ReadTimeout time.Duration
	StopGrace   time.Duration
	// Logger defaults to the "capture" component logger.
	Logger *zerolog.Logger
}

// FFmpegSource decodes streams with an ffmpeg child process writing MJPEG to
// its stdout.
type FFmpegSource struct {
	opts   FFmpegOptions
	logger zerolog.Logger
}

func NewFFmpegSource(opts FFmpegOptions) *FFmpegSource {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "ffmpeg"
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = defaultStopGrace
	}
	logger := xglog.WithComponent("capture")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &FFmpegSource{opts: opts, logger: logger}
}

// Args returns the ffmpeg command line for url.
func (s *FFmpegSource) Args(url string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if s.opts.RTSPTransport != "" && strings.HasPrefix(strings.ToLower(url), "rtsp") {
		args = append(args, "-rtsp_transport", s.opts.RTSPTransport)
	}
	return append(args,
		"-i", url,
		"-an",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)
}

// Open starts the decoder. Connecting to the remote end happens in the child
// process, so a bad URL surfaces as an error from the first Next call.
func (s *FFmpegSource) Open(ctx context.Context, url string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(s.opts.BinaryPath, s.Args(url)...)
	procgroup.Set(cmd)

	stderr := NewRingBuffer(stderrLines)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrOpenFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrOpenFailed, s.opts.BinaryPath, err)
	}

	st := &ffmpegStream{
		cmd:         cmd,
		stderr:      stderr,
		frames:      make(chan []byte),
		done:        make(chan struct{}),
		waitCh:      make(chan error, 1),
		openTimeout: s.opts.OpenTimeout,
		readTimeout: s.opts.ReadTimeout,
		grace:       s.opts.StopGrace,
	}
	go st.read(stdout)

	s.logger.Debug().
		Str(xglog.FieldEvent, "capture.decoder_started").
		Str(xglog.FieldURL, xglog.RedactURL(url)).
		Int("pid", cmd.Process.Pid).
		Msg("decoder started")
	return st, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stderr *RingBuffer

	frames chan []byte
	done   chan struct{}
	waitCh chan error

	// Written by read before frames is closed.
	scanErr error
	exitErr error

	seq         uint64
	openTimeout time.Duration
	readTimeout time.Duration
	grace       time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *ffmpegStream) read(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 256<<10), maxFrameSize)
	sc.Split(SplitJPEG)

	for sc.Scan() {
		frame := append([]byte(nil), sc.Bytes()...)
		select {
		case s.frames <- frame:
		case <-s.done:
			// Keep draining so the decoder is never blocked on a full pipe.
		}
	}
	s.scanErr = sc.Err()
	if s.scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}

	err := s.cmd.Wait()
	s.exitErr = err
	close(s.frames)
	s.waitCh <- err
}

func (s *ffmpegStream) Next(ctx context.Context) (Frame, error) {
	timeout := s.readTimeout
	if s.seq == 0 && s.openTimeout > 0 {
		timeout = s.openTimeout
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case data, ok := <-s.frames:
		if !ok {
			return Frame{}, s.endErr()
		}
		s.seq++
		return Frame{Data: data, Seq: s.seq, CapturedAt: time.Now()}, nil
	case <-expired:
		return Frame{}, fmt.Errorf("%w: no frame within %s", ErrReadTimeout, timeout)
	}
}

func (s *ffmpegStream) endErr() error {
	cause := "decoder exited"
	switch {
	case s.scanErr != nil:
		cause = s.scanErr.Error()
	case s.exitErr != nil:
		cause = s.exitErr.Error()
	}
	if tail := s.stderr.Tail(); tail != "" {
		return fmt.Errorf("%w: %s: %s", ErrStreamEnded, cause, tail)
	}
	return fmt.Errorf("%w: %s", ErrStreamEnded, cause)
}

// Close terminates the decoder process group and reaps it.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		select {
		case <-s.waitCh:
			// Already exited and reaped.
		default:
			s.closeErr = ignoreExit(procgroup.Terminate(s.cmd, s.waitCh, s.grace))
		}
	})
	return s.closeErr
}

// A decoder stopped by Close exits non-zero or by signal; only failures to
// stop or reap it are reported.
func ignoreExit(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
