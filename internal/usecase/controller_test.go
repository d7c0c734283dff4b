package usecase

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
	"interviewdesk/internal/speech"
)

func testConfig() Config {
	return Config{
		Output: speech.OutputConfig{StartBase: time.Second, SafetyBase: 2 * time.Second, SafetyPerChar: time.Nanosecond},
		Input: speech.InputConfig{
			SilenceWindow:  40 * time.Millisecond,
			MaxRestarts:    1,
			RestartBackoff: time.Millisecond,
		},
		ResumeDelay: 10 * time.Millisecond,
		SegmentGap:  time.Millisecond,
	}
}

type harness struct {
	controller *InterviewController
	capture    *fakeCapture
	synth      *fakeSynth
	provider   *fakeProvider
	store      *fakeStore
	events     *fakeEventSink
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		capture:  newFakeCapture(),
		synth:    &fakeSynth{},
		provider: &fakeProvider{},
		store:    &fakeStore{},
		events:   &fakeEventSink{},
	}
	h.controller = NewInterviewController(Dependencies{
		Capture:     h.capture,
		Synthesizer: h.synth,
		Transcriber: h.provider,
		Scripts:     fakeScripts{segments: threeQuestionScript()},
		Store:       h.store,
		Scorer:      NewPlaceholderScorer(nil),
		Events:      h.events,
		Logger:      zerolog.Nop(),
	}, cfg)
	t.Cleanup(func() { _ = h.controller.Close() })
	return h
}

func (h *harness) answerWhenAsked(t *testing.T, text string) {
	t.Helper()
	waitStatus(t, h.controller, func(s domain.Status) bool { return s.AwaitingAnswer })
	if _, err := h.controller.SubmitAnswer(context.Background(), text); err != nil {
		t.Fatalf("submit %q failed: %v", text, err)
	}
}

func TestInterviewControllerCompletesThreeQuestionScript(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	status, err := h.controller.Start(context.Background(), StartRequest{ApplicationID: "app-1", JobID: "job-1", Mode: domain.ModeText})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if status.Phase != domain.PhaseActive || status.TotalSegments != 8 {
		t.Fatalf("unexpected start status: %+v", status)
	}

	for _, answer := range []string{"answer 1", "answer 2", "answer 3"} {
		h.answerWhenAsked(t, answer)
	}

	final := waitStatus(t, h.controller, func(s domain.Status) bool { return s.Phase == domain.PhaseComplete })
	if !final.Ended || final.FinalScore == nil || *final.FinalScore < 70 || *final.FinalScore > 100 {
		t.Fatalf("unexpected final status: %+v", final)
	}

	calls := h.store.snapshot()
	if len(calls) != 1 || calls[0].applicationID != "app-1" {
		t.Fatalf("expected exactly one submission, got %+v", calls)
	}
	want := []string{"Hello", "Q1", "answer 1", "Thanks", "Q2", "answer 2", "Thanks", "Q3", "answer 3", "Thanks", "Bye"}
	got := make([]string, 0, len(calls[0].transcript))
	for _, entry := range calls[0].transcript {
		got = append(got, entry.Text)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected transcript order:\n got %q\nwant %q", got, want)
	}
	if calls[0].transcript[2].Role != domain.RoleCandidate || calls[0].transcript[1].Role != domain.RoleInterviewer {
		t.Fatalf("unexpected roles: %+v", calls[0].transcript)
	}

	if !h.events.hasReason(domain.SessionReasonResultSubmitted) {
		t.Fatalf("expected result_submitted event")
	}
	if len(h.events.completedResults()) != 1 {
		t.Fatalf("expected one completion event")
	}
	if _, err := h.controller.SubmitAnswer(context.Background(), "too late"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ended-session rejection after completion, got %v", err)
	}
}

func TestInterviewControllerMicrophoneDeniedStillAcceptsTypedAnswers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	h.capture.deny(domain.DeviceMicrophone, errors.New("permission denied"))

	status, err := h.controller.Start(context.Background(), StartRequest{ApplicationID: "app-1", Mode: domain.ModeVoice})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if status.Devices.Microphone.Granted || status.Devices.Microphone.Error == "" {
		t.Fatalf("expected microphone to be unavailable: %+v", status.Devices.Microphone)
	}
	if status.Listening {
		t.Fatalf("listening must not start without a microphone")
	}
	if !h.events.hasReason(domain.SessionReasonStartedDegraded) || !h.events.hasError(domain.ErrorCodePermission) {
		t.Fatalf("expected degraded start with permission error")
	}

	before := waitStatus(t, h.controller, func(s domain.Status) bool { return s.AwaitingAnswer })
	after, err := h.controller.SubmitAnswer(context.Background(), "typed answer")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if after.CurrentSegment <= before.CurrentSegment {
		t.Fatalf("expected segment to advance: %d -> %d", before.CurrentSegment, after.CurrentSegment)
	}
}

func TestInterviewControllerSubmitRejections(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	if _, err := h.controller.SubmitAnswer(context.Background(), "hi"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if _, err := h.controller.Start(context.Background(), StartRequest{Mode: domain.ModeText}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := h.controller.Start(context.Background(), StartRequest{Mode: domain.ModeText}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	before := waitStatus(t, h.controller, func(s domain.Status) bool { return s.AwaitingAnswer })
	after, err := h.controller.SubmitAnswer(context.Background(), "   ")
	if !errors.Is(err, domain.ErrEmptyAnswer) {
		t.Fatalf("expected empty answer rejection, got %v", err)
	}
	if after.CurrentSegment != before.CurrentSegment || len(after.Transcript) != len(before.Transcript) {
		t.Fatalf("rejected answer must not change the session")
	}
	if _, err := h.controller.SubmitVoiceAnswer(context.Background()); !errors.Is(err, domain.ErrEmptyAnswer) {
		t.Fatalf("expected empty voice draft rejection, got %v", err)
	}
}

func TestInterviewControllerEndIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	h.synth.hold = true
	if err := h.controller.End(context.Background()); err != nil {
		t.Fatalf("end without session failed: %v", err)
	}
	if _, err := h.controller.Start(context.Background(), StartRequest{ApplicationID: "app-1", Mode: domain.ModeProctored}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitStatus(t, h.controller, func(s domain.Status) bool { return s.Speech == domain.SpeechInterviewerSpeaking })

	for i := 0; i < 3; i++ {
		if err := h.controller.End(context.Background()); err != nil {
			t.Fatalf("end %d failed: %v", i, err)
		}
	}

	status := h.controller.Status()
	if !status.Ended || status.Phase != domain.PhaseEnded || status.Speech != domain.SpeechIdle {
		t.Fatalf("unexpected status after end: %+v", status)
	}
	for _, kind := range domain.DeviceKinds {
		if status.Devices.Get(kind).Granted {
			t.Fatalf("%s still granted after end", kind)
		}
	}
	if open := h.capture.openStreams(); open != 0 {
		t.Fatalf("expected every stream released, %d still open", open)
	}
	if len(h.store.snapshot()) != 0 {
		t.Fatalf("ending early must not submit a result")
	}
	for name, call := range map[string]func() (domain.Status, error){
		"answer":        func() (domain.Status, error) { return h.controller.SubmitAnswer(context.Background(), "late") },
		"voice answer":  func() (domain.Status, error) { return h.controller.SubmitVoiceAnswer(context.Background()) },
		"force advance": func() (domain.Status, error) { return h.controller.ForceAdvance(context.Background()) },
	} {
		after, err := call()
		var subErr *domain.SubmissionError
		if !errors.As(err, &subErr) || !errors.Is(err, domain.ErrSessionEnded) {
			t.Fatalf("%s after end: expected ended-session rejection, got %v", name, err)
		}
		if !after.Ended || len(after.Transcript) != len(status.Transcript) {
			t.Fatalf("%s after end must not change the session: %+v", name, after)
		}
	}
}

func TestInterviewControllerBargeInPausesAndResumes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	h.synth.hold = true
	if _, err := h.controller.Start(context.Background(), StartRequest{ApplicationID: "app-1", Mode: domain.ModeVoice}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	intro := h.synth.waitUtterance(t, 0)
	waitFor(t, func() bool { return slices.Contains(h.events.entryTexts(), "Hello") })

	stream := h.provider.waitStream(t, 0)
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "sorry, one thing"}

	waitFor(t, func() bool { return intro.pauseCount() > 0 })
	waitFor(t, func() bool { return intro.resumeCount() > 0 })

	path := h.events.speechPath()
	pausedAt := slices.Index(path, domain.SpeechInterviewerPausedForCandidate)
	if pausedAt < 0 || pausedAt+1 >= len(path) || path[pausedAt+1] != domain.SpeechCandidateSpeaking {
		t.Fatalf("expected pause then candidate speaking, got %v", path)
	}
	if !slices.Contains(path, domain.SpeechCandidateSilenceWindow) {
		t.Fatalf("expected silence window before resume, got %v", path)
	}

	intro.finish()
	first := h.synth.waitUtterance(t, 1)
	if first.text != "Q1" {
		t.Fatalf("expected first question after the intro, got %q", first.text)
	}
	if h.synth.count() != 2 {
		t.Fatalf("the paused intro must be resumed in place, not re-spoken")
	}
}

func TestInterviewControllerAutoSubmitsVoiceAnswer(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AutoSubmit = true
	h := newHarness(t, cfg)
	if _, err := h.controller.Start(context.Background(), StartRequest{ApplicationID: "app-1", Mode: domain.ModeVoice}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	before := waitStatus(t, h.controller, func(s domain.Status) bool { return s.AwaitingAnswer && s.Speech == domain.SpeechIdle })
	stream := h.provider.waitStream(t, 0)
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "I built a compiler"}

	after := waitStatus(t, h.controller, func(s domain.Status) bool { return s.CurrentSegment > before.CurrentSegment })
	found := slices.ContainsFunc(after.Transcript, func(e domain.TranscriptEntry) bool {
		return e.Role == domain.RoleCandidate && e.Text == "I built a compiler"
	})
	if !found {
		t.Fatalf("expected spoken answer in transcript: %+v", after.Transcript)
	}
	if after.Draft != "" {
		t.Fatalf("draft must reset after submission, got %q", after.Draft)
	}
}

func TestInterviewControllerSynthesisFailureFallsBackToClips(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	h.synth.speakErr = errors.New("engine missing")
	clips := &fakeClips{}
	h.controller.deps.Clips = clips

	if _, err := h.controller.Start(context.Background(), StartRequest{Mode: domain.ModeText}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	h.answerWhenAsked(t, "answer 1")
	waitStatus(t, h.controller, func(s domain.Status) bool { return s.AwaitingAnswer && s.CurrentSegment == 3 })

	if calls := h.synth.speakCalls(); calls != 1 {
		t.Fatalf("expected a single synthesis attempt, got %d", calls)
	}
	if got := clips.played(); len(got) < 4 || got[0] != "segment-0" || got[1] != "segment-1" {
		t.Fatalf("unexpected clips: %v", got)
	}
	if !h.controller.Status().Fallback || !h.events.hasError(domain.ErrorCodeSynthesis) {
		t.Fatalf("expected fallback to be reported")
	}
}

func TestInterviewControllerToggleMicrophone(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testConfig())
	if _, err := h.controller.Start(context.Background(), StartRequest{Mode: domain.ModeVoice}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	devices, err := h.controller.SetDevice(context.Background(), domain.DeviceMicrophone, false)
	if err != nil || devices.Microphone.Granted {
		t.Fatalf("expected microphone off: %+v %v", devices.Microphone, err)
	}
	if h.controller.Status().Listening {
		t.Fatalf("listening must stop with the microphone")
	}

	devices, err = h.controller.SetDevice(context.Background(), domain.DeviceMicrophone, true)
	if err != nil || !devices.Microphone.Granted {
		t.Fatalf("expected microphone on: %+v %v", devices.Microphone, err)
	}
	if !h.controller.Status().Listening {
		t.Fatalf("listening must restart with the microphone")
	}

	h.capture.deny(domain.DeviceCamera, errors.New("no camera"))
	_, err = h.controller.SetDevice(context.Background(), domain.DeviceCamera, true)
	var permErr *domain.PermissionError
	if !errors.As(err, &permErr) || permErr.Kind != domain.DeviceCamera {
		t.Fatalf("expected camera permission error, got %v", err)
	}
	if h.controller.Status().Phase != domain.PhaseActive {
		t.Fatalf("permission failure must not end the session")
	}
}

func TestInterviewControllerRejectsEmptyScript(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := NewInterviewController(Dependencies{
		Capture: newFakeCapture(),
		Scripts: fakeScripts{},
		Events:  events,
		Logger:  zerolog.Nop(),
	}, testConfig())

	_, err := controller.Start(context.Background(), StartRequest{Mode: domain.ModeText})
	if !errors.Is(err, domain.ErrEmptyScript) {
		t.Fatalf("expected empty script error, got %v", err)
	}
	if !events.hasError(domain.ErrorCodeStartup) {
		t.Fatalf("expected startup error event")
	}
	if controller.Status().Phase != domain.PhaseIdle {
		t.Fatalf("rejected start must leave the controller idle")
	}
}

func waitStatus(t *testing.T, c *InterviewController, ok func(domain.Status) bool) domain.Status {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if status := c.Status(); ok(status) {
			return status
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("status condition not met: %+v", c.Status())
	return domain.Status{}
}

func waitFor(t *testing.T, ok func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ok() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

type fakeScripts struct {
	segments []domain.ScriptSegment
}

func (f fakeScripts) Script(context.Context, string) ([]domain.ScriptSegment, error) {
	return f.segments, nil
}

type fakeCapture struct {
	mu      sync.Mutex
	denied  map[domain.DeviceKind]error
	streams []*fakeMediaStream
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{denied: make(map[domain.DeviceKind]error)}
}

func (f *fakeCapture) deny(kind domain.DeviceKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[kind] = err
}

func (f *fakeCapture) Request(_ context.Context, kind domain.DeviceKind) (ports.MediaStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.denied[kind]; err != nil {
		return nil, &domain.PermissionError{Kind: kind, Err: err}
	}
	reader, writer := io.Pipe()
	stream := &fakeMediaStream{kind: kind, id: string(kind) + "-stream", reader: reader, writer: writer}
	f.streams = append(f.streams, stream)
	return stream, nil
}

func (f *fakeCapture) openStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	open := 0
	for _, stream := range f.streams {
		if !stream.isStopped() {
			open++
		}
	}
	return open
}

type fakeMediaStream struct {
	kind   domain.DeviceKind
	id     string
	reader *io.PipeReader
	writer *io.PipeWriter

	mu      sync.Mutex
	stopped bool
}

func (s *fakeMediaStream) Read(p []byte) (int, error) { return s.reader.Read(p) }
func (s *fakeMediaStream) Close() error                { return s.Stop() }
func (s *fakeMediaStream) Kind() domain.DeviceKind     { return s.kind }
func (s *fakeMediaStream) ID() string                  { return s.id }

func (s *fakeMediaStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	_ = s.writer.Close()
	return s.reader.Close()
}

func (s *fakeMediaStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fakeSynth speaks instantly unless hold is set, in which case utterances
// stay audible until finish is called.
type fakeSynth struct {
	hold     bool
	speakErr error

	mu         sync.Mutex
	calls      int
	utterances []*fakeUtterance
}

func (f *fakeSynth) Speak(_ context.Context, text string, _ string) (ports.Utterance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.speakErr != nil {
		return nil, f.speakErr
	}
	utt := newFakeUtterance(text)
	f.utterances = append(f.utterances, utt)
	utt.events <- domain.SynthesisEvent{Kind: domain.SynthesisStarted}
	if !f.hold {
		utt.finish()
	}
	return utt, nil
}

func (f *fakeSynth) speakCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSynth) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.utterances)
}

func (f *fakeSynth) waitUtterance(t *testing.T, index int) *fakeUtterance {
	t.Helper()
	var utt *fakeUtterance
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.utterances) > index {
			utt = f.utterances[index]
			return true
		}
		return false
	})
	return utt
}

type fakeClips struct {
	mu    sync.Mutex
	clips []string
}

func (f *fakeClips) Play(_ context.Context, clipID string) (ports.Utterance, error) {
	f.mu.Lock()
	f.clips = append(f.clips, clipID)
	f.mu.Unlock()
	utt := newFakeUtterance(clipID)
	utt.events <- domain.SynthesisEvent{Kind: domain.SynthesisStarted}
	utt.finish()
	return utt, nil
}

func (f *fakeClips) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.clips)
}

type fakeUtterance struct {
	text   string
	events chan domain.SynthesisEvent

	mu      sync.Mutex
	closed  bool
	pauses  int
	resumes int
}

func newFakeUtterance(text string) *fakeUtterance {
	return &fakeUtterance{text: text, events: make(chan domain.SynthesisEvent, 4)}
}

func (u *fakeUtterance) Events() <-chan domain.SynthesisEvent { return u.events }

func (u *fakeUtterance) finish() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.closed = true
	u.events <- domain.SynthesisEvent{Kind: domain.SynthesisEnded}
	close(u.events)
}

func (u *fakeUtterance) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pauses++
	return nil
}

func (u *fakeUtterance) Resume() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resumes++
	return nil
}

func (u *fakeUtterance) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.closed {
		u.closed = true
		close(u.events)
	}
}

func (u *fakeUtterance) pauseCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pauses
}

func (u *fakeUtterance) resumeCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.resumes
}

type fakeProvider struct {
	mu      sync.Mutex
	streams []*fakeStreamingSession
}

func (f *fakeProvider) StartStreaming(_ context.Context, _ ports.StreamingConfig) (ports.StreamingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stream := &fakeStreamingSession{events: make(chan domain.TranscriptEvent, 16), done: make(chan struct{})}
	f.streams = append(f.streams, stream)
	return stream, nil
}

func (f *fakeProvider) waitStream(t *testing.T, index int) *fakeStreamingSession {
	t.Helper()
	var stream *fakeStreamingSession
	waitFor(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if len(f.streams) > index {
			stream = f.streams[index]
			return true
		}
		return false
	})
	return stream
}

type fakeStreamingSession struct {
	events chan domain.TranscriptEvent
	done   chan struct{}
	once   sync.Once
}

func (s *fakeStreamingSession) SendAudio([]byte) error { return nil }
func (s *fakeStreamingSession) CloseSend() error       { return nil }

func (s *fakeStreamingSession) Events() <-chan domain.TranscriptEvent { return s.events }

func (s *fakeStreamingSession) Wait() error {
	<-s.done
	return nil
}

func (s *fakeStreamingSession) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type storeCall struct {
	applicationID string
	score         int
	transcript    []domain.TranscriptEntry
}

type fakeStore struct {
	err error

	mu    sync.Mutex
	calls []storeCall
}

func (f *fakeStore) SubmitInterviewResult(_ context.Context, applicationID string, score int, transcript []domain.TranscriptEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{applicationID: applicationID, score: score, transcript: transcript})
	return f.err
}

func (f *fakeStore) snapshot() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type stateEvent struct {
	phase  domain.SessionPhase
	reason domain.SessionStateReason
}

type fakeEventSink struct {
	mu sync.Mutex

	states    []stateEvent
	speech    []domain.SpeechState
	entries   []domain.TranscriptEntry
	partials  []string
	devices   []domain.DeviceCapability
	errors    []domain.ErrorCode
	completed []domain.InterviewResult
}

func (f *fakeEventSink) SessionStateChanged(phase domain.SessionPhase, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{phase: phase, reason: reason})
}

func (f *fakeEventSink) SpeechStateChanged(_ domain.SpeechState, to domain.SpeechState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speech = append(f.speech, to)
}

func (f *fakeEventSink) TranscriptAppended(entry domain.TranscriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeEventSink) PartialTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, text)
}

func (f *fakeEventSink) DeviceChanged(capability domain.DeviceCapability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, capability)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, code)
}

func (f *fakeEventSink) InterviewCompleted(result domain.InterviewResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, result)
}

func (f *fakeEventSink) hasReason(reason domain.SessionStateReason) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.ContainsFunc(f.states, func(e stateEvent) bool { return e.reason == reason })
}

func (f *fakeEventSink) hasError(code domain.ErrorCode) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.errors, code)
}

func (f *fakeEventSink) entryTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		texts = append(texts, entry.Text)
	}
	return texts
}

func (f *fakeEventSink) speechPath() []domain.SpeechState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.speech)
}

func (f *fakeEventSink) completedResults() []domain.InterviewResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.completed)
}
