package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/speech"
	"interviewdesk/internal/turn"
)

// run is the session event loop. It is the only goroutine that touches the
// arbiter state, the driver, or the timers.
func (s *activeSession) run() {
	defer s.teardown()

	s.driver.begin()
	s.settle()

	for !s.done {
		select {
		case cmd := <-s.commands:
			cmd()
		case ev := <-s.output.Events():
			s.handleOutput(ev)
		case ev := <-s.input.Events():
			s.handleInput(ev)
		case fired := <-s.timers:
			s.handleTimer(fired)
		case <-s.ctx.Done():
			s.terminate(domain.SessionReasonContextCancelled)
		}
		s.settle()
	}
}

// do runs fn on the loop and waits for its result.
func (s *activeSession) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	cmd := func() {
		err := fn()
		s.settle()
		reply <- err
	}
	select {
	case s.commands <- cmd:
	case <-s.exited:
		return ErrNoActiveSession
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-reply
}

// settle feeds the next queued segment to the arbiter when it can take one
// and publishes the resulting status.
func (s *activeSession) settle() {
	if !s.done && !s.driver.state.Ended && !s.gap.armed && s.turn.CanAccept() {
		if seg, ok := s.driver.next(); ok {
			s.dispatch(turn.SpeakRequested{Segment: seg})
		}
	}
	s.publish()
}

func (s *activeSession) dispatch(e turn.Event) turn.Step {
	step := turn.Reduce(s.turn, e)
	prev := s.turn.Speech
	s.turn = step.State
	s.driver.state.PausedUtterance = nil
	if paused := step.State.Paused; paused != nil {
		seg := *paused
		s.driver.state.PausedUtterance = &seg
	}

	for _, next := range step.Path {
		s.logger.Debug().Str("from", string(prev)).Str("state", string(next)).Msg("speech state changed")
		s.events.SpeechStateChanged(prev, next)
		prev = next
	}
	for _, effect := range step.Effects {
		s.perform(effect)
	}
	return step
}

func (s *activeSession) perform(effect turn.Effect) {
	switch effect.Kind {
	case turn.EffectStartSpeech:
		s.output.Speak(s.ctx, effect.Segment)
	case turn.EffectPauseSpeech:
		s.output.Pause()
	case turn.EffectResumeSpeech:
		if effect.Started {
			s.output.Resume(s.ctx, effect.Segment)
			return
		}
		s.output.Speak(s.ctx, effect.Segment)
	case turn.EffectScheduleResume:
		s.resume.arm(s.cfg.ResumeDelay, s.timers, s.exited)
	case turn.EffectCancelResume:
		s.resume.stop()
	case turn.EffectSegmentFinished:
		if effect.Segment.Kind == domain.SegmentClosing {
			s.complete()
			return
		}
		if s.driver.pending() {
			s.gap.arm(s.cfg.SegmentGap, s.timers, s.exited)
		}
	case turn.EffectAnswerComplete:
		if !s.cfg.AutoSubmit || !s.driver.awaiting() {
			return
		}
		if draft := s.input.Draft(); strings.TrimSpace(draft) != "" {
			if err := s.submitAnswer(draft); err != nil {
				s.logger.Debug().Err(err).Msg("auto-submit rejected")
			}
		}
	case turn.EffectStopAll:
		s.resume.stop()
		s.gap.stop()
		s.output.Cancel()
		s.input.Stop()
	}
}

func (s *activeSession) handleOutput(ev speech.OutputEvent) {
	seg := ev.Segment
	switch ev.Kind {
	case speech.OutputStarted, speech.OutputResumed:
		s.driver.voiced(seg, time.Now())
		s.dispatch(turn.OutputStarted{Index: seg.Index})
	case speech.OutputEnded:
		if ev.Forced {
			s.logger.Warn().Int("segment", seg.Index).Msg("segment ended by safety timeout")
		}
		if ev.Err != nil {
			s.events.SessionError(domain.ErrorCodeSynthesis, ev.Err.Error())
		}
		if s.speaking(seg.Index) {
			s.driver.voiced(seg, time.Now())
		}
		s.dispatch(turn.OutputEnded{Index: seg.Index})
	case speech.OutputFailed:
		detail := "speech synthesis failed"
		if ev.Err != nil {
			detail = ev.Err.Error()
		}
		s.events.SessionError(domain.ErrorCodeSynthesis, detail)
	case speech.OutputPaused:
		s.logger.Debug().Int("segment", seg.Index).Msg("interviewer paused for candidate")
	}
}

func (s *activeSession) handleInput(ev speech.InputEvent) {
	switch ev.Kind {
	case speech.InputFragment:
		s.events.PartialTranscript(ev.Draft)
	case speech.InputGrowth:
		s.dispatch(turn.CandidateGrowth{})
	case speech.InputSilence:
		s.dispatch(turn.SilenceElapsed{})
	case speech.InputError:
		code := domain.ErrorCodeRecognition
		if errors.Is(ev.Err, speech.ErrMicrophoneClosed) {
			code = domain.ErrorCodeAudioStream
		}
		s.events.SessionError(code, ev.Err.Error())
		s.releaseCandidate()
	}
}

func (s *activeSession) handleTimer(fired timerFired) {
	switch fired.kind {
	case timerResume:
		if s.resume.fire(fired) {
			s.dispatch(turn.ResumeDue{})
		}
	case timerGap:
		s.gap.fire(fired)
	}
}

// speaking reports whether the arbiter holds index as the interviewer's
// current segment.
func (s *activeSession) speaking(index int) bool {
	return s.turn.Speech == domain.SpeechInterviewerSpeaking && s.turn.Active != nil && s.turn.Active.Index == index
}

// releaseCandidate ends the candidate's turn when no more silence can be
// detected because listening stopped.
func (s *activeSession) releaseCandidate() {
	if s.turn.Speech == domain.SpeechCandidateSpeaking {
		s.dispatch(turn.SilenceElapsed{})
	}
}

func (s *activeSession) submitAnswer(text string) error {
	if err := s.driver.submit(text, time.Now()); err != nil {
		s.events.SessionError(domain.ErrorCodeSubmission, err.Error())
		return err
	}
	s.input.ResetDraft()
	return nil
}

func (s *activeSession) forceAdvance() error {
	if err := s.driver.forceAdvance(s.input.Draft(), time.Now()); err != nil {
		s.events.SessionError(domain.ErrorCodeSubmission, err.Error())
		return err
	}
	s.input.ResetDraft()
	return nil
}

// setDevice binds new streams to the session, not the caller's request.
func (s *activeSession) setDevice(kind domain.DeviceKind, on bool) error {
	if kind == domain.DeviceMicrophone {
		s.input.Stop()
		s.releaseCandidate()
	}

	if !on {
		err := s.devices.Release(kind)
		s.events.DeviceChanged(s.devices.Snapshot().Get(kind))
		return err
	}

	capability, err := s.devices.Request(s.ctx, kind)
	s.events.DeviceChanged(capability)
	if err != nil {
		s.events.SessionError(domain.ErrorCodePermission, err.Error())
		return err
	}
	if kind == domain.DeviceMicrophone {
		s.startListening()
	}
	return nil
}

func (s *activeSession) startListening() bool {
	mic, ok := s.devices.Microphone()
	if !ok {
		return false
	}
	if err := s.input.Start(s.ctx, mic, true); err != nil {
		s.logger.Warn().Err(err).Msg("speech recognition unavailable, typed answers only")
		s.events.SessionError(domain.ErrorCodeRecognition, err.Error())
		return false
	}
	return true
}

// complete finalizes a session whose closing segment finished speaking.
func (s *activeSession) complete() {
	s.dispatch(turn.Terminate{})
	s.driver.end()
	s.done = true
	s.phase = domain.PhaseComplete

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.cfg.SubmitTimeout)
	defer cancel()

	result, reason, err := s.finalizer.Finalize(ctx, s.id, s.applicationID, &s.driver.state)
	switch {
	case err == nil:
		s.logger.Info().Int("score", result.Score).Msg("interview complete, result submitted")
		s.events.InterviewCompleted(result)
	case reason == domain.SessionReasonResultFailed:
		s.logger.Error().Err(err).Msg("interview complete, result submission failed")
		s.events.InterviewCompleted(result)
	default:
		s.logger.Error().Err(err).Msg("interview complete, scoring failed")
		s.phase = domain.PhaseError
	}
	s.events.SessionStateChanged(s.phase, reason)
}

// terminate ends the session early. It never submits a result.
func (s *activeSession) terminate(reason domain.SessionStateReason) {
	if s.done {
		return
	}
	s.dispatch(turn.Terminate{})
	s.driver.end()
	s.done = true
	s.phase = domain.PhaseEnded
	s.logger.Info().Str("reason", string(reason)).Msg("interview ended")
	s.events.SessionStateChanged(domain.PhaseEnded, reason)
}

func (s *activeSession) teardown() {
	s.resume.stop()
	s.gap.stop()
	s.output.Close()
	s.input.Close()

	held := slices.DeleteFunc(slices.Clone(domain.DeviceKinds), func(kind domain.DeviceKind) bool {
		return !s.devices.Held(kind)
	})
	if err := s.devices.ReleaseAll(); err != nil {
		s.logger.Debug().Err(err).Msg("device release reported an error")
	}
	snapshot := s.devices.Snapshot()
	for _, kind := range held {
		s.events.DeviceChanged(snapshot.Get(kind))
	}

	s.cancel()
	s.publish()
	s.onExit(s)
	close(s.exited)
}

func (s *activeSession) publish() {
	s.setStatus(domain.Status{
		SessionID:      s.id,
		ApplicationID:  s.applicationID,
		JobID:          s.jobID,
		Mode:           s.mode,
		Phase:          s.phase,
		Speech:         s.turn.Speech,
		CurrentSegment: s.driver.state.CurrentSegmentIndex,
		TotalSegments:  s.driver.total(),
		AwaitingAnswer: s.driver.awaiting(),
		Draft:          s.input.Draft(),
		Devices:        s.devices.Snapshot(),
		Fallback:       s.output.Fallback(),
		Listening:      s.input.Listening(),
		Ended:          s.driver.state.Ended,
		FinalScore:     s.driver.state.FinalScore,
		Transcript:     slices.Clone(s.driver.state.Transcript),
	})
}
