package speech

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

// OutputEventKind enumerates speech output notifications.
type OutputEventKind string

const (
	OutputStarted OutputEventKind = "started"
	OutputPaused  OutputEventKind = "paused"
	OutputResumed OutputEventKind = "resumed"
	OutputEnded   OutputEventKind = "ended"
	OutputFailed  OutputEventKind = "failed"
)

// OutputEvent reports progress of one segment.
type OutputEvent struct {
	Kind    OutputEventKind
	Segment domain.ScriptSegment
	// Fallback is set when the segment is voiced by a prerecorded clip.
	Fallback bool
	// Forced is set when the safety timer ended the segment.
	Forced bool
	Err    error
}

// OutputConfig sizes the start and safety windows from text length.
type OutputConfig struct {
	Voice         string
	StartBase     time.Duration
	StartPerChar  time.Duration
	SafetyBase    time.Duration
	SafetyPerChar time.Duration
}

func (c OutputConfig) withDefaults() OutputConfig {
	if c.StartBase <= 0 {
		c.StartBase = 2 * time.Second
	}
	if c.StartPerChar <= 0 {
		c.StartPerChar = 30 * time.Millisecond
	}
	if c.SafetyBase <= 0 {
		c.SafetyBase = 4 * time.Second
	}
	if c.SafetyPerChar <= 0 {
		c.SafetyPerChar = 90 * time.Millisecond
	}
	return c
}

func (c OutputConfig) startWindow(seg domain.ScriptSegment) time.Duration {
	return c.StartBase + time.Duration(len(seg.Text))*c.StartPerChar
}

func (c OutputConfig) safetyWindow(seg domain.ScriptSegment) time.Duration {
	return c.SafetyBase + time.Duration(len(seg.Text))*c.SafetyPerChar
}

// Output voices script segments. After the first synthesis failure it plays
// prerecorded clips for the rest of its life.
type Output struct {
	synth  ports.SpeechSynthesizer
	clips  ports.ClipPlayer
	cfg    OutputConfig
	logger zerolog.Logger
	queue  *eventQueue[OutputEvent]

	mu       sync.Mutex
	gen      uint64
	current  *attempt
	fallback bool
	closed   bool
}

type attempt struct {
	gen     uint64
	ctx     context.Context
	seg     domain.ScriptSegment
	utt     ports.Utterance
	clip    bool
	started bool
	paused  bool
	resumed bool

	startTimer  *time.Timer
	safetyTimer *time.Timer
}

func (a *attempt) stopTimers() {
	if a.startTimer != nil {
		a.startTimer.Stop()
	}
	if a.safetyTimer != nil {
		a.safetyTimer.Stop()
	}
}

// NewOutput builds an output channel. A nil synth means synthesis is
// unsupported and every segment is voiced from clips.
func NewOutput(synth ports.SpeechSynthesizer, clips ports.ClipPlayer, cfg OutputConfig, logger zerolog.Logger) *Output {
	return &Output{
		synth:  synth,
		clips:  clips,
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("component", "speech_output").Logger(),
		queue:  newEventQueue[OutputEvent](32),
	}
}

func (o *Output) Events() <-chan OutputEvent {
	return o.queue.out
}

// Fallback reports whether the channel switched to clips.
func (o *Output) Fallback() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fallback
}

// Speak starts seg from the beginning, replacing any current segment.
func (o *Output) Speak(ctx context.Context, seg domain.ScriptSegment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.cancelLocked()
	o.launchLocked(ctx, seg, false)
}

// Pause stops the current segment so the candidate can speak. A segment that
// cannot be paused in place is cancelled and later re-spoken from the start.
func (o *Output) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	a := o.current
	if a == nil || a.paused {
		return
	}
	a.stopTimers()

	if a.started && a.utt != nil {
		if err := a.utt.Pause(); err == nil {
			a.paused = true
			o.queue.push(OutputEvent{Kind: OutputPaused, Segment: a.seg, Fallback: a.clip})
			return
		}
	}

	if a.utt != nil {
		a.utt.Cancel()
	}
	o.gen++
	o.current = nil
	o.queue.push(OutputEvent{Kind: OutputPaused, Segment: a.seg, Fallback: a.clip})
}

// Resume continues seg. A segment paused in place resumes where it stopped;
// otherwise it is re-spoken in full.
func (o *Output) Resume(ctx context.Context, seg domain.ScriptSegment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	if a := o.current; a != nil && a.paused && a.seg.Index == seg.Index {
		if err := a.utt.Resume(); err == nil {
			a.paused = false
			a.safetyTimer = o.safetyTimerLocked(a)
			o.queue.push(OutputEvent{Kind: OutputResumed, Segment: a.seg, Fallback: a.clip})
			return
		}
	}

	o.cancelLocked()
	o.launchLocked(ctx, seg, true)
}

// Cancel aborts the current segment without emitting further events.
func (o *Output) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelLocked()
}

// Close cancels playback and closes the event stream.
func (o *Output) Close() {
	o.mu.Lock()
	o.cancelLocked()
	o.closed = true
	o.mu.Unlock()
	o.queue.close()
}

func (o *Output) cancelLocked() {
	a := o.current
	o.gen++
	o.current = nil
	if a == nil {
		return
	}
	a.stopTimers()
	if a.utt != nil {
		a.utt.Cancel()
	}
}

func (o *Output) launchLocked(ctx context.Context, seg domain.ScriptSegment, resumed bool) {
	o.gen++
	a := &attempt{gen: o.gen, ctx: ctx, seg: seg, resumed: resumed}
	o.current = a

	if o.fallback {
		o.playClipLocked(a)
		return
	}
	if o.synth == nil {
		o.switchToFallbackLocked(a, domain.SynthesisReasonUnsupported, nil)
		return
	}

	utt, err := o.synth.Speak(ctx, seg.Text, o.cfg.Voice)
	if err != nil {
		o.switchToFallbackLocked(a, domain.SynthesisReasonFailed, err)
		return
	}
	a.utt = utt
	gen := a.gen
	a.startTimer = time.AfterFunc(o.cfg.startWindow(seg), func() { o.onStartTimeout(gen) })
	a.safetyTimer = o.safetyTimerLocked(a)
	go o.watch(gen, utt)
}

func (o *Output) switchToFallbackLocked(a *attempt, reason string, cause error) {
	a.stopTimers()
	if a.utt != nil {
		a.utt.Cancel()
	}

	o.fallback = true
	synthErr := &domain.SynthesisError{Segment: a.seg.Index, Reason: reason, Err: cause}
	o.logger.Warn().Err(synthErr).Int("segment", a.seg.Index).Msg("speech synthesis unavailable, switching to prerecorded clips")
	o.queue.push(OutputEvent{Kind: OutputFailed, Segment: a.seg, Fallback: true, Err: synthErr})

	o.gen++
	next := &attempt{gen: o.gen, ctx: a.ctx, seg: a.seg, resumed: a.resumed}
	o.current = next
	o.playClipLocked(next)
}

// playClipLocked voices a from its fallback clip. A missing clip is left to
// the safety timer.
func (o *Output) playClipLocked(a *attempt) {
	a.clip = true
	a.safetyTimer = o.safetyTimerLocked(a)
	if o.clips == nil {
		o.logger.Warn().Int("segment", a.seg.Index).Msg("no clip player configured")
		return
	}
	utt, err := o.clips.Play(a.ctx, a.seg.ClipID())
	if err != nil {
		o.logger.Warn().Err(err).Int("segment", a.seg.Index).Str("clip", a.seg.ClipID()).Msg("fallback clip unavailable")
		return
	}
	a.utt = utt
	go o.watch(a.gen, utt)
}

func (o *Output) safetyTimerLocked(a *attempt) *time.Timer {
	gen := a.gen
	return time.AfterFunc(o.cfg.safetyWindow(a.seg), func() { o.onSafetyTimeout(gen) })
}

func (o *Output) watch(gen uint64, utt ports.Utterance) {
	for ev := range utt.Events() {
		o.handleSynthesisEvent(gen, ev)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if a := o.current; a != nil && a.gen == gen && !a.paused {
		o.finishLocked(a, false, nil)
	}
}

func (o *Output) handleSynthesisEvent(gen uint64, ev domain.SynthesisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	a := o.current
	if a == nil || a.gen != gen {
		return
	}

	switch ev.Kind {
	case domain.SynthesisStarted:
		if a.started {
			return
		}
		a.started = true
		if a.startTimer != nil {
			a.startTimer.Stop()
		}
		kind := OutputStarted
		if a.resumed {
			kind = OutputResumed
		}
		o.queue.push(OutputEvent{Kind: kind, Segment: a.seg, Fallback: a.clip})
	case domain.SynthesisEnded:
		o.finishLocked(a, false, nil)
	case domain.SynthesisFailed:
		if a.clip {
			o.logger.Warn().Err(ev.Err).Int("segment", a.seg.Index).Msg("fallback clip playback failed")
			o.finishLocked(a, false, ev.Err)
			return
		}
		o.switchToFallbackLocked(a, domain.SynthesisReasonFailed, ev.Err)
	}
}

func (o *Output) onStartTimeout(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.current
	if a == nil || a.gen != gen || a.started || a.clip || a.paused {
		return
	}
	o.switchToFallbackLocked(a, domain.SynthesisReasonStartTimeout, nil)
}

func (o *Output) onSafetyTimeout(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.current
	if a == nil || a.gen != gen || a.paused {
		return
	}
	if a.utt != nil {
		a.utt.Cancel()
	}
	o.logger.Warn().Int("segment", a.seg.Index).Msg("speech safety timeout, forcing segment end")
	o.finishLocked(a, true, nil)
}

func (o *Output) finishLocked(a *attempt, forced bool, err error) {
	a.stopTimers()
	o.current = nil
	o.gen++
	o.queue.push(OutputEvent{Kind: OutputEnded, Segment: a.seg, Fallback: a.clip, Forced: forced, Err: err})
}
