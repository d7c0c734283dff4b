package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

var (
	ErrPauseUnsupported = errors.New("pause is not supported for clip playback")
	ErrClipNotFound     = errors.New("fallback clip not found")
)

// FFPlayPlayer plays raw linear16 PCM through ffplay.
type FFPlayPlayer struct {
	command string
}

func NewFFPlayPlayer(command string) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &FFPlayPlayer{command: command}
}

func playbackArgs(sampleRate int) []string {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return []string{
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-",
	}
}

func (p *FFPlayPlayer) Open(ctx context.Context, sampleRate int) (ports.PCMSink, error) {
	cmd := exec.CommandContext(ctx, p.command, playbackArgs(sampleRate)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffplay stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffplay: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	sink := &pcmSink{stdin: stdin, stderr: &stderr, process: cmd.Process, waitErr: waitErr}
	sink.cond = sync.NewCond(&sink.mu)
	return sink, nil
}

type pcmSink struct {
	stdin   io.WriteCloser
	stderr  *bytes.Buffer
	process *os.Process
	waitErr <-chan error

	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	aborted bool

	closeOnce sync.Once
	closeErr  error
}

// Write blocks while playback is paused.
func (s *pcmSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	for s.paused && !s.aborted {
		s.cond.Wait()
	}
	aborted := s.aborted
	s.mu.Unlock()
	if aborted {
		return 0, errors.New("playback aborted")
	}
	return s.stdin.Write(p)
}

func (s *pcmSink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *pcmSink) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *pcmSink) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdin.Close()
		if err, ok := <-s.waitErr; ok && err != nil {
			s.closeErr = fmt.Errorf("ffplay exited: %w: %s", err, stringsTrimSpaceSafe(s.stderr.String()))
		}
	})
	return s.closeErr
}

func (s *pcmSink) Abort() {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
	s.cond.Broadcast()

	s.closeOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Kill()
		}
		_ = s.stdin.Close()
		<-s.waitErr
	})
}

// ClipPlayer plays prerecorded fallback clips from a directory.
type ClipPlayer struct {
	command string
	dir     string
}

func NewClipPlayer(command string, dir string) *ClipPlayer {
	if command == "" {
		command = "ffplay"
	}
	return &ClipPlayer{command: command, dir: dir}
}

// Resolve maps a clip key to <dir>/<id>.wav, then <dir>/<id>.mp3.
func (p *ClipPlayer) Resolve(clipID string) (string, error) {
	if clipID == "" || filepath.Base(clipID) != clipID {
		return "", fmt.Errorf("%w: invalid clip id %q", ErrClipNotFound, clipID)
	}
	for _, ext := range []string{".wav", ".mp3"} {
		path := filepath.Join(p.dir, clipID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
}

func (p *ClipPlayer) Play(ctx context.Context, clipID string) (ports.Utterance, error) {
	path, err := p.Resolve(clipID)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.command, "-nodisp", "-autoexit", "-hide_banner", "-loglevel", "warning", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start clip playback: %w", err)
	}

	u := &clipUtterance{
		events:  make(chan domain.SynthesisEvent, 2),
		process: cmd.Process,
	}
	u.events <- domain.SynthesisEvent{Kind: domain.SynthesisStarted}

	go func() {
		err := cmd.Wait()
		u.mu.Lock()
		cancelled := u.cancelled
		u.mu.Unlock()
		if !cancelled {
			if err != nil {
				u.events <- domain.SynthesisEvent{
					Kind: domain.SynthesisFailed,
					Err:  fmt.Errorf("clip %s: %w: %s", clipID, err, stringsTrimSpaceSafe(stderr.String())),
				}
			} else {
				u.events <- domain.SynthesisEvent{Kind: domain.SynthesisEnded}
			}
		}
		close(u.events)
	}()

	return u, nil
}

type clipUtterance struct {
	events  chan domain.SynthesisEvent
	process *os.Process

	mu        sync.Mutex
	cancelled bool
}

func (u *clipUtterance) Events() <-chan domain.SynthesisEvent { return u.events }

func (u *clipUtterance) Pause() error { return ErrPauseUnsupported }

func (u *clipUtterance) Resume() error { return ErrPauseUnsupported }

func (u *clipUtterance) Cancel() {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	u.cancelled = true
	u.mu.Unlock()
	if u.process != nil {
		_ = u.process.Kill()
	}
}
