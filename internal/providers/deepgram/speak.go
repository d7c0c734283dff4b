package deepgram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

const (
	defaultSpeakModel      = "aura-2-thalia-en"
	defaultSpeakSampleRate = 48000
	speakIdleWindow        = 400 * time.Millisecond
	speakFirstAudioTimeout = 12 * time.Second
	speakPollInterval      = 50 * time.Millisecond
)

var errNoFirstAudio = errors.New("no audio received from Deepgram")

// speakConn is the subset of the SDK speak client the synthesizer drives.
type speakConn interface {
	Connect() bool
	SpeakWithText(text string) error
	Flush() error
	Stop()
}

type dialSpeakFunc func(ctx context.Context, apiKey string, model string, sampleRate int, cb *speakCallback) (speakConn, error)

func dialSDK(ctx context.Context, apiKey string, model string, sampleRate int, cb *speakCallback) (speakConn, error) {
	options := &clientinterfaces.WSSpeakOptions{
		Model:      model,
		Encoding:   "linear16",
		SampleRate: sampleRate,
	}
	client, err := speak.NewWSUsingCallback(ctx, apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Synthesizer implements ports.SpeechSynthesizer with Deepgram's streaming
// speak API, playing linear16 audio through a PCM sink as it arrives.
type Synthesizer struct {
	apiKey     string
	model      string
	sampleRate int
	player     ports.PCMPlayer
	logger     zerolog.Logger

	dial         dialSpeakFunc
	idleWindow   time.Duration
	startTimeout time.Duration
}

func NewSynthesizer(cfg Config, player ports.PCMPlayer, logger zerolog.Logger) *Synthesizer {
	model := strings.TrimSpace(cfg.SpeakModel)
	if model == "" {
		model = defaultSpeakModel
	}
	rate := cfg.SpeakSampleRate
	if rate <= 0 {
		rate = defaultSpeakSampleRate
	}
	return &Synthesizer{
		apiKey:       cfg.APIKey,
		model:        model,
		sampleRate:   rate,
		player:       player,
		logger:       logger.With().Str("component", "deepgram_speak").Logger(),
		dial:         dialSDK,
		idleWindow:   speakIdleWindow,
		startTimeout: speakFirstAudioTimeout,
	}
}

// Speak starts synthesis and returns immediately. A non-empty voice
// overrides the configured model for this utterance.
func (s *Synthesizer) Speak(ctx context.Context, text string, voice string) (ports.Utterance, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if s.player == nil {
		return nil, errors.New("no PCM player configured")
	}
	model := s.model
	if v := strings.TrimSpace(voice); v != "" {
		model = v
	}

	uctx, cancel := context.WithCancel(ctx)
	u := &speakUtterance{
		events: make(chan domain.SynthesisEvent, 2),
		pcm:    make(chan []byte, 256),
		cancel: cancel,
	}
	go u.run(uctx, s, text, model)
	return u, nil
}

type speakUtterance struct {
	events chan domain.SynthesisEvent
	pcm    chan []byte
	cancel context.CancelFunc

	mu        sync.Mutex
	sink      ports.PCMSink
	paused    bool
	resumedAt time.Time
	cancelled bool
}

func (u *speakUtterance) Events() <-chan domain.SynthesisEvent { return u.events }

func (u *speakUtterance) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancelled {
		return errors.New("utterance cancelled")
	}
	u.paused = true
	if u.sink != nil {
		u.sink.Pause()
	}
	return nil
}

func (u *speakUtterance) Resume() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancelled {
		return errors.New("utterance cancelled")
	}
	u.paused = false
	u.resumedAt = time.Now()
	if u.sink != nil {
		u.sink.Resume()
	}
	return nil
}

// Cancel stops playback without a terminal event.
func (u *speakUtterance) Cancel() {
	u.mu.Lock()
	if u.cancelled {
		u.mu.Unlock()
		return
	}
	u.cancelled = true
	sink := u.sink
	u.mu.Unlock()

	u.cancel()
	if sink != nil {
		go sink.Abort()
	}
}

func (u *speakUtterance) isCancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}

// idleSince reports when audio last advanced, counting a resume as progress.
func (u *speakUtterance) idleSince(last time.Time) (time.Time, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.resumedAt.After(last) {
		last = u.resumedAt
	}
	return last, u.paused
}

func (u *speakUtterance) finish(event domain.SynthesisEvent) {
	if !u.isCancelled() {
		u.events <- event
	}
	close(u.events)
}

func (u *speakUtterance) fail(err error) {
	u.finish(domain.SynthesisEvent{Kind: domain.SynthesisFailed, Err: err})
}

func (u *speakUtterance) onBinary(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	chunk := append([]byte(nil), data...)
	select {
	case u.pcm <- chunk:
	default:
	}
	return nil
}

func (u *speakUtterance) run(ctx context.Context, s *Synthesizer, text string, model string) {
	defer u.cancel()

	sink, err := s.player.Open(ctx, s.sampleRate)
	if err != nil {
		u.fail(fmt.Errorf("open playback: %w", err))
		return
	}
	u.mu.Lock()
	u.sink = sink
	paused := u.paused
	cancelled := u.cancelled
	u.mu.Unlock()
	if cancelled {
		sink.Abort()
		close(u.events)
		return
	}
	if paused {
		sink.Pause()
	}

	cb := &speakCallback{onBinary: u.onBinary, onError: func(message string) {
		s.logger.Warn().Str("model", model).Str("error", message).Msg("speak error from provider")
	}}
	conn, err := s.dial(ctx, s.apiKey, model, s.sampleRate, cb)
	if err != nil {
		sink.Abort()
		u.fail(fmt.Errorf("create speak client: %w", err))
		return
	}
	stop := sync.OnceFunc(conn.Stop)
	defer stop()

	if ok := conn.Connect(); !ok {
		sink.Abort()
		u.fail(errors.New("connect to Deepgram speak websocket failed"))
		return
	}
	if err := conn.SpeakWithText(text); err != nil {
		sink.Abort()
		u.fail(fmt.Errorf("speak text: %w", err))
		return
	}
	if err := conn.Flush(); err != nil {
		s.logger.Warn().Err(err).Msg("speak flush failed")
	}

	ticker := time.NewTicker(speakPollInterval)
	defer ticker.Stop()
	deadline := time.Now().Add(s.startTimeout)
	started := false
	var last time.Time

	for {
		select {
		case <-ctx.Done():
			sink.Abort()
			close(u.events)
			return
		case chunk := <-u.pcm:
			if !started {
				started = true
				u.events <- domain.SynthesisEvent{Kind: domain.SynthesisStarted}
			}
			if _, err := sink.Write(chunk); err != nil {
				if u.isCancelled() {
					close(u.events)
					return
				}
				sink.Abort()
				u.fail(fmt.Errorf("write playback: %w", err))
				return
			}
			last = time.Now()
		case <-ticker.C:
			if !started {
				if time.Now().After(deadline) {
					sink.Abort()
					u.fail(errNoFirstAudio)
					return
				}
				continue
			}
			since, paused := u.idleSince(last)
			if paused || time.Since(since) <= s.idleWindow {
				continue
			}
			stop()
			if err := sink.Close(); err != nil {
				// Audio was already heard; report the end with the playback error.
				u.finish(domain.SynthesisEvent{Kind: domain.SynthesisEnded, Err: err})
				return
			}
			u.finish(domain.SynthesisEvent{Kind: domain.SynthesisEnded})
			return
		}
	}
}

type speakCallback struct {
	onBinary func([]byte) error
	onError  func(string)
}

func (c *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (c *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (c *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (c *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (c *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (c *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (c *speakCallback) UnhandledEvent([]byte) error                    { return nil }

func (c *speakCallback) Error(er *msginterfaces.ErrorResponse) error {
	if c.onError != nil && er != nil {
		c.onError(er.Description)
	}
	return nil
}

func (c *speakCallback) Binary(data []byte) error {
	if c.onBinary != nil {
		return c.onBinary(data)
	}
	return nil
}
