// Package capture streams microphone PCM audio for the speech engine.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Session is a live microphone capture emitting s16le PCM.
type Session interface {
	io.ReadCloser
	Stop() error
}

// Source creates microphone capture sessions.
type Source interface {
	Start(ctx context.Context) (Session, error)
}

// Config describes how the microphone is captured.
type Config struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// FFmpeg captures microphone audio by running an ffmpeg pipeline writing raw
// PCM to stdout.
type FFmpeg struct {
	cfg Config
}

// NewFFmpeg creates an ffmpeg-backed capture source.
func NewFFmpeg(cfg Config) *FFmpeg {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &FFmpeg{cfg: cfg}
}

// Available reports whether the capture command can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.cfg.Command)
	return err == nil
}

// Start launches the capture process.
func (f *FFmpeg) Start(ctx context.Context) (Session, error) {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", f.cfg.InputFormat,
		"-i", f.cfg.InputDevice,
		"-ac", strconv.Itoa(f.cfg.Channels),
		"-ar", strconv.Itoa(f.cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, f.cfg.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting capture: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// Give the process a moment to fail on a bad device before declaring the
	// capture live.
	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("capture exited before starting: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("capture exited before starting")
	case <-time.After(250 * time.Millisecond):
	}

	return &ffmpegSession{
		stdout:  stdout,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type ffmpegSession struct {
	stdout  io.ReadCloser
	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Close() error {
	return s.Stop()
}

func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = ignoreExit(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = ignoreExit(err)
			}
		}

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
	})

	return s.stopErr
}

// ignoreExit drops the non-zero exit status a signalled ffmpeg reports.
func ignoreExit(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
