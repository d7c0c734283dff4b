package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"interviewdesk/internal/devices"
	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
	"interviewdesk/internal/speech"
	"interviewdesk/internal/turn"
)

var (
	ErrNoActiveSession = errors.New("no active interview session")
	ErrSessionActive   = errors.New("an interview session is already active")
)

// Config controls turn-taking timing and the speech channels.
type Config struct {
	Output        speech.OutputConfig
	Input         speech.InputConfig
	ResumeDelay   time.Duration
	SegmentGap    time.Duration
	AutoSubmit    bool
	SubmitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = 400 * time.Millisecond
	}
	if c.SegmentGap < 0 {
		c.SegmentGap = 0
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 10 * time.Second
	}
	return c
}

// Dependencies are the capabilities and collaborators a session uses.
// Synthesizer and Transcriber may be nil when the capability is unsupported.
type Dependencies struct {
	Capture     ports.MediaCapture
	Synthesizer ports.SpeechSynthesizer
	Clips       ports.ClipPlayer
	Transcriber ports.TranscriptionProvider
	Scripts     ports.ScriptSource
	Store       ports.ResultStore
	Scorer      ports.Scorer
	Events      ports.EventSink
	Logger      zerolog.Logger
}

// StartRequest describes the interview to run.
type StartRequest struct {
	ApplicationID string               `json:"applicationId"`
	JobID         string               `json:"jobId"`
	Mode          domain.InterviewMode `json:"mode"`
	SkipDevices   []domain.DeviceKind  `json:"skipDevices"`
}

// InterviewController runs at most one interview session at a time.
type InterviewController struct {
	deps Dependencies
	cfg  Config

	mu       sync.Mutex
	current  *activeSession
	starting bool
	last     *domain.Status
}

func NewInterviewController(deps Dependencies, cfg Config) *InterviewController {
	if deps.Events == nil {
		deps.Events = nopEventSink{}
	}
	if deps.Scorer == nil {
		deps.Scorer = NewPlaceholderScorer(nil)
	}
	if deps.Store == nil {
		deps.Store = discardStore{}
	}
	return &InterviewController{deps: deps, cfg: cfg.withDefaults()}
}

// Start builds the script, acquires the devices the mode needs, and begins
// speaking. Missing devices degrade the session instead of failing it.
func (c *InterviewController) Start(ctx context.Context, req StartRequest) (domain.Status, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeVoice
	}

	c.mu.Lock()
	if c.current != nil || c.starting {
		c.mu.Unlock()
		return domain.Status{}, ErrSessionActive
	}
	c.starting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	events := c.deps.Events
	segments, err := c.deps.Scripts.Script(ctx, req.JobID)
	var driver *scriptDriver
	if err == nil {
		driver, err = newScriptDriver(segments, events.TranscriptAppended)
	}
	if err != nil {
		err = fmt.Errorf("load interview script: %w", err)
		events.SessionError(domain.ErrorCodeStartup, err.Error())
		events.SessionStateChanged(domain.PhaseError, domain.SessionReasonStartFailed)
		return domain.Status{}, err
	}

	id := uuid.NewString()
	logger := c.deps.Logger.With().Str("session_id", id).Logger()
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s := &activeSession{
		id:            id,
		applicationID: req.ApplicationID,
		jobID:         req.JobID,
		mode:          mode,
		ctx:           sessionCtx,
		cancel:        cancel,
		logger:        logger,
		cfg:           c.cfg,
		events:        events,
		finalizer:     newResultFinalizer(c.deps.Scorer, c.deps.Store, events),
		onExit:        c.detach,
		devices:       devices.NewManager(c.deps.Capture, logger),
		output:        speech.NewOutput(c.deps.Synthesizer, c.deps.Clips, c.cfg.Output, logger),
		input:         speech.NewInput(c.deps.Transcriber, c.cfg.Input, logger),
		driver:        driver,
		turn:          turn.NewState(),
		phase:         domain.PhaseActive,
		resume:        loopTimer{kind: timerResume},
		gap:           loopTimer{kind: timerGap},
		commands:      make(chan func()),
		timers:        make(chan timerFired, 4),
		exited:        make(chan struct{}),
	}

	degraded := false
	for _, kind := range mode.RequiredDevices() {
		if slices.Contains(req.SkipDevices, kind) {
			events.DeviceChanged(s.devices.MarkSkipped(kind))
			degraded = true
			continue
		}
		capability, err := s.devices.Request(sessionCtx, kind)
		events.DeviceChanged(capability)
		if err != nil {
			events.SessionError(domain.ErrorCodePermission, err.Error())
			degraded = true
		}
	}
	if slices.Contains(mode.RequiredDevices(), domain.DeviceMicrophone) && !s.startListening() {
		degraded = true
	}

	c.mu.Lock()
	c.current = s
	c.last = nil
	c.mu.Unlock()

	reason := domain.SessionReasonStarted
	if degraded {
		reason = domain.SessionReasonStartedDegraded
	}
	logger.Info().
		Str("application_id", req.ApplicationID).
		Str("job_id", req.JobID).
		Str("mode", string(mode)).
		Int("segments", driver.total()).
		Bool("degraded", degraded).
		Msg("interview started")
	events.SessionStateChanged(domain.PhaseActive, reason)

	s.publish()
	go s.run()
	return s.getStatus(), nil
}

// SubmitAnswer records a typed answer for the pending question.
func (c *InterviewController) SubmitAnswer(ctx context.Context, text string) (domain.Status, error) {
	return c.answer(ctx, func(s *activeSession) error { return s.submitAnswer(text) })
}

// SubmitVoiceAnswer submits the recognized draft as the answer.
func (c *InterviewController) SubmitVoiceAnswer(ctx context.Context) (domain.Status, error) {
	return c.answer(ctx, func(s *activeSession) error { return s.submitAnswer(s.input.Draft()) })
}

// ForceAdvance skips to the next question.
func (c *InterviewController) ForceAdvance(ctx context.Context) (domain.Status, error) {
	return c.answer(ctx, func(s *activeSession) error { return s.forceAdvance() })
}

// SetDevice turns a capture capability on or off mid-session. Permission
// failures are reported but leave the session running.
func (c *InterviewController) SetDevice(ctx context.Context, kind domain.DeviceKind, on bool) (domain.DeviceSnapshot, error) {
	status, err := c.command(ctx, func(s *activeSession) error { return s.setDevice(kind, on) })
	return status.Devices, err
}

// End stops the active session without submitting a result. Ending when no
// session is running is a no-op.
func (c *InterviewController) End(ctx context.Context) error {
	s, err := c.active()
	if err != nil {
		return nil
	}

	err = s.do(ctx, func() error {
		s.terminate(domain.SessionReasonEnded)
		return nil
	})
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	if err != nil {
		return err
	}

	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the active session, else the last finished one.
func (c *InterviewController) Status() domain.Status {
	c.mu.Lock()
	current, last := c.current, c.last
	c.mu.Unlock()

	if current != nil {
		return current.getStatus()
	}
	if last != nil {
		return *last
	}
	return domain.Status{Phase: domain.PhaseIdle, Speech: domain.SpeechIdle}
}

// Close ends any active session.
func (c *InterviewController) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.End(ctx)
}

func (c *InterviewController) command(ctx context.Context, fn func(*activeSession) error) (domain.Status, error) {
	s, err := c.active()
	if err != nil {
		return domain.Status{}, err
	}
	err = s.do(ctx, func() error { return fn(s) })
	return s.getStatus(), err
}

// answer runs an answer command. Once a session has finished, answers are
// rejected as submissions to an ended session rather than as missing ones.
func (c *InterviewController) answer(ctx context.Context, fn func(*activeSession) error) (domain.Status, error) {
	status, err := c.command(ctx, fn)
	if !errors.Is(err, ErrNoActiveSession) || !c.finished() {
		return status, err
	}
	return c.Status(), &domain.SubmissionError{Reason: domain.ErrSessionEnded}
}

// finished reports whether a session ran and has since ended.
func (c *InterviewController) finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == nil && c.last != nil
}

func (c *InterviewController) active() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

func (c *InterviewController) detach(s *activeSession) {
	status := s.getStatus()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == s {
		c.current = nil
		c.last = &status
	}
}
