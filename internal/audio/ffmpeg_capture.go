package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

// FFMPEGCapture opens microphone, camera, and screen streams using ffmpeg.
type FFMPEGCapture struct {
	command string
	cfg     ports.CaptureConfig
}

func NewFFMPEGCapture(command string, cfg ports.CaptureConfig) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, cfg: withCaptureDefaults(cfg)}
}

func withCaptureDefaults(cfg ports.CaptureConfig) ports.CaptureConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.CameraFormat == "" {
		cfg.CameraFormat = "v4l2"
	}
	if cfg.CameraDevice == "" {
		cfg.CameraDevice = "/dev/video0"
	}
	if cfg.ScreenFormat == "" {
		cfg.ScreenFormat = "x11grab"
	}
	if cfg.ScreenDevice == "" {
		cfg.ScreenDevice = ":0.0"
	}
	return cfg
}

// captureArgs returns the ffmpeg arguments for kind. Only the microphone
// produces output on stdout; camera and screen are held open for preview.
func captureArgs(kind domain.DeviceKind, cfg ports.CaptureConfig) ([]string, error) {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning"}
	switch kind {
	case domain.DeviceMicrophone:
		args = append(args,
			"-f", cfg.InputFormat,
			"-i", cfg.InputDevice,
			"-ac", strconv.Itoa(cfg.Channels),
			"-ar", strconv.Itoa(cfg.SampleRate),
			"-f", "s16le",
			"-",
		)
	case domain.DeviceCamera:
		args = append(args,
			"-f", cfg.CameraFormat,
			"-i", cfg.CameraDevice,
			"-f", "null",
			"-",
		)
	case domain.DeviceScreen:
		args = append(args,
			"-f", cfg.ScreenFormat,
			"-i", cfg.ScreenDevice,
			"-r", "5",
			"-f", "null",
			"-",
		)
	default:
		return nil, fmt.Errorf("unsupported capture kind %q", kind)
	}
	return args, nil
}

func (c *FFMPEGCapture) Request(ctx context.Context, kind domain.DeviceKind) (ports.MediaStream, error) {
	args, err := captureArgs(kind, c.cfg)
	if err != nil {
		return nil, &domain.PermissionError{Kind: kind, Err: err}
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, &domain.PermissionError{Kind: kind, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, &domain.PermissionError{
				Kind: kind,
				Err:  fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, stringsTrimSpaceSafe(stderr.String())),
			}
		}
		return nil, &domain.PermissionError{Kind: kind, Err: errors.New("ffmpeg exited before capture started")}
	case <-time.After(250 * time.Millisecond):
	}

	return &ffmpegStream{
		kind:    kind,
		id:      uuid.NewString(),
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type ffmpegStream struct {
	kind domain.DeviceKind
	id   string

	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) Kind() domain.DeviceKind { return s.kind }

func (s *ffmpegStream) ID() string { return s.id }

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegStream) Close() error {
	return s.Stop()
}

func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopErr = stopProcess(s.process, s.waitErr)

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, stringsTrimSpaceSafe(s.stderr.String()))
		}
	})

	return s.stopErr
}

// stopProcess interrupts the process and kills it if it does not exit promptly.
func stopProcess(process *os.Process, waitErr <-chan error) error {
	if process != nil {
		_ = process.Signal(os.Interrupt)
	}

	select {
	case err, ok := <-waitErr:
		if ok {
			return normalizeStopErr(err)
		}
	case <-time.After(1200 * time.Millisecond):
		if process != nil {
			_ = process.Kill()
		}
		err, ok := <-waitErr
		if ok {
			return normalizeStopErr(err)
		}
	}
	return nil
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
