package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

// ErrMicrophoneClosed reports that the microphone stream ended while listening.
var ErrMicrophoneClosed = errors.New("microphone stream ended")

// InputEventKind enumerates speech input notifications.
type InputEventKind string

const (
	InputFragment InputEventKind = "fragment"
	InputGrowth   InputEventKind = "growth"
	InputSilence  InputEventKind = "silence"
	InputError    InputEventKind = "error"
)

// InputEvent carries recognizer output and the derived turn signals.
type InputEvent struct {
	Kind    InputEventKind
	Text    string
	IsFinal bool
	Draft   string
	Err     error
}

// InputConfig controls recognition, silence detection, and restarts.
type InputConfig struct {
	Streaming      ports.StreamingConfig
	ChunkSize      int
	SilenceWindow  time.Duration
	MaxRestarts    int
	RestartBackoff time.Duration
}

func (c InputConfig) withDefaults() InputConfig {
	if c.ChunkSize < 256 {
		c.ChunkSize = 4096
	}
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = 1500 * time.Millisecond
	}
	if c.MaxRestarts < 0 {
		c.MaxRestarts = 0
	}
	if c.RestartBackoff <= 0 {
		c.RestartBackoff = 500 * time.Millisecond
	}
	return c
}

// Input listens to the microphone through a streaming recognizer. The
// recognizer is restarted while listening is desired; repeated failures
// disable listening for the rest of the session.
type Input struct {
	provider ports.TranscriptionProvider
	cfg      InputConfig
	logger   zerolog.Logger
	queue    *eventQueue[InputEvent]
	silence  func(func())

	mu        sync.Mutex
	gen       uint64
	listening bool
	disabled  bool
	lastLen   int
	cancel    context.CancelFunc
	done      chan struct{}

	draft answerDraft
}

func NewInput(provider ports.TranscriptionProvider, cfg InputConfig, logger zerolog.Logger) *Input {
	cfg = cfg.withDefaults()
	return &Input{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "speech_input").Logger(),
		queue:    newEventQueue[InputEvent](64),
		silence:  debounce.New(cfg.SilenceWindow),
	}
}

func (in *Input) Events() <-chan InputEvent {
	return in.queue.out
}

// Start begins listening on mic. Calling Start while listening is a no-op.
func (in *Input) Start(ctx context.Context, mic io.Reader, continuous bool) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.listening {
		return nil
	}
	if in.provider == nil {
		return &domain.RecognitionError{Reason: domain.RecognitionReasonUnsupported}
	}
	if in.disabled {
		return &domain.RecognitionError{Reason: domain.RecognitionReasonDisabled}
	}
	if mic == nil {
		return &domain.RecognitionError{Reason: domain.RecognitionReasonUnsupported, Err: errors.New("no microphone stream")}
	}

	in.gen++
	gen := in.gen
	runCtx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.listening = true
	done := make(chan struct{})
	in.done = done

	audio := make(chan []byte, 32)
	go pumpMicrophone(runCtx, mic, in.cfg.ChunkSize, audio, func(err error) { in.onMicrophoneEnded(gen, err) })
	go in.run(runCtx, gen, audio, continuous, done)

	in.logger.Debug().Bool("continuous", continuous).Msg("listening started")
	return nil
}

// Stop ends listening and waits for the recognizer to shut down.
func (in *Input) Stop() {
	in.mu.Lock()
	if !in.listening {
		in.mu.Unlock()
		return
	}
	in.listening = false
	in.gen++
	in.cancel()
	done := in.done
	in.mu.Unlock()

	<-done
	in.logger.Debug().Msg("listening stopped")
}

// Close stops listening and closes the event stream.
func (in *Input) Close() {
	in.Stop()
	in.queue.close()
}

func (in *Input) Listening() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.listening
}

func (in *Input) Disabled() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.disabled
}

// Draft returns the answer heard so far.
func (in *Input) Draft() string {
	return in.draft.Text()
}

// ResetDraft clears the answer and the growth baseline.
func (in *Input) ResetDraft() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.draft.Reset()
	in.lastLen = 0
}

func (in *Input) run(ctx context.Context, gen uint64, audio <-chan []byte, continuous bool, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		var heard, speechFinal bool
		stream, err := in.provider.StartStreaming(ctx, in.cfg.Streaming)
		if err == nil {
			heard, speechFinal, err = in.serve(ctx, gen, stream, audio, continuous)
		}
		if ctx.Err() != nil {
			return
		}
		if !continuous && speechFinal {
			in.finish(gen)
			return
		}

		if heard {
			failures = 0
		}
		failures++
		recErr := &domain.RecognitionError{Reason: domain.RecognitionReasonTerminated, Err: err}
		if failures > in.cfg.MaxRestarts {
			in.disable(gen, recErr)
			return
		}

		in.logger.Warn().Err(recErr).Int("attempt", failures).Msg("recognizer stopped unexpectedly, restarting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(failures) * in.cfg.RestartBackoff):
		}
	}
}

// serve streams audio into one recognizer session until it ends.
func (in *Input) serve(
	ctx context.Context,
	gen uint64,
	stream ports.StreamingSession,
	audio <-chan []byte,
	continuous bool,
) (heard bool, speechFinal bool, err error) {
	sendCtx, stopSend := context.WithCancel(ctx)
	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for {
			select {
			case <-sendCtx.Done():
				return
			case chunk := <-audio:
				if sendErr := stream.SendAudio(chunk); sendErr != nil {
					_ = stream.Close()
					return
				}
			}
		}
	}()
	defer func() {
		stopSend()
		<-sendDone
		_ = stream.Close()
	}()

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return heard, speechFinal, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				waitErr := stream.Wait()
				if waitErr == nil {
					waitErr = errors.New("recognizer session ended")
				}
				return heard, speechFinal, waitErr
			}
			if in.handleTranscript(gen, ev) {
				heard = true
			}
			if ev.IsSpeechFinal {
				speechFinal = true
				if !continuous {
					_ = stream.CloseSend()
					return heard, speechFinal, nil
				}
			}
		}
	}
}

func (in *Input) handleTranscript(gen uint64, ev domain.TranscriptEvent) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if gen != in.gen {
		return false
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return false
	}

	in.draft.Add(ev)
	draft := in.draft.Text()
	in.queue.push(InputEvent{
		Kind:    InputFragment,
		Text:    text,
		IsFinal: ev.Kind == domain.TranscriptKindFinal,
		Draft:   draft,
	})

	if len(draft) > in.lastLen {
		in.lastLen = len(draft)
		in.queue.push(InputEvent{Kind: InputGrowth, Draft: draft})
		in.silence(func() { in.onSilence(gen) })
	}
	return true
}

func (in *Input) onSilence(gen uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if gen != in.gen || !in.listening {
		return
	}
	in.queue.push(InputEvent{Kind: InputSilence, Draft: in.draft.Text()})
}

func (in *Input) finish(gen uint64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if gen != in.gen {
		return
	}
	in.listening = false
	in.gen++
	in.cancel()
}

func (in *Input) disable(gen uint64, cause error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if gen != in.gen {
		return
	}
	in.listening = false
	in.disabled = true
	in.gen++
	in.cancel()

	err := &domain.RecognitionError{Reason: domain.RecognitionReasonDisabled, Err: cause}
	in.logger.Warn().Err(err).Msg("speech recognition disabled, typed answers only")
	in.queue.push(InputEvent{Kind: InputError, Err: err})
}

func (in *Input) onMicrophoneEnded(gen uint64, cause error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if gen != in.gen {
		return
	}
	in.listening = false
	in.gen++
	in.cancel()

	err := ErrMicrophoneClosed
	if cause != nil && !errors.Is(cause, io.EOF) {
		err = fmt.Errorf("%w: %v", ErrMicrophoneClosed, cause)
	}
	in.logger.Warn().Err(err).Msg("microphone stream ended")
	in.queue.push(InputEvent{Kind: InputError, Err: err})
}
