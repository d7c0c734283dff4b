// Package turn arbitrates the half-duplex speaking channel between the
// interviewer and the candidate. Reduce is a pure transition function; the
// caller owns the State value and executes the returned effects.
package turn

import (
	"interviewdesk/internal/domain"
)

// Event is an input to the arbiter.
type Event interface {
	turnEvent()
}

// SpeakRequested asks the arbiter to voice a script segment.
type SpeakRequested struct {
	Segment domain.ScriptSegment
}

// OutputStarted reports that audio for a segment became audible.
type OutputStarted struct {
	Index int
}

// OutputEnded reports natural or forced completion of a segment.
type OutputEnded struct {
	Index int
}

// CandidateGrowth reports that the candidate's live transcript grew.
type CandidateGrowth struct{}

// SilenceElapsed reports no growth for the debounce window.
type SilenceElapsed struct{}

// ResumeDue fires when a paused segment may be spoken again.
type ResumeDue struct{}

// Terminate ends the interview from any state.
type Terminate struct{}

func (SpeakRequested) turnEvent()  {}
func (OutputStarted) turnEvent()   {}
func (OutputEnded) turnEvent()     {}
func (CandidateGrowth) turnEvent() {}
func (SilenceElapsed) turnEvent()  {}
func (ResumeDue) turnEvent()       {}
func (Terminate) turnEvent()       {}

// EffectKind names a side effect the caller must perform.
type EffectKind string

const (
	EffectStartSpeech     EffectKind = "start_speech"
	EffectPauseSpeech     EffectKind = "pause_speech"
	EffectResumeSpeech    EffectKind = "resume_speech"
	EffectScheduleResume  EffectKind = "schedule_resume"
	EffectCancelResume    EffectKind = "cancel_resume"
	EffectSegmentFinished EffectKind = "segment_finished"
	EffectAnswerComplete  EffectKind = "answer_complete"
	EffectStopAll         EffectKind = "stop_all"
)

// Effect is one instruction produced by a transition.
type Effect struct {
	Kind    EffectKind
	Segment domain.ScriptSegment
	// Started is set on resume effects when the segment had already become audible.
	Started bool
}

// State is the complete arbiter state. Speech is the single owner token of the
// speaking channel.
type State struct {
	Speech        domain.SpeechState
	Active        *domain.ScriptSegment
	ActiveStarted bool
	Paused        *domain.ScriptSegment
	PausedStarted bool
	Ended         bool
}

// NewState returns the idle starting state.
func NewState() State {
	return State{Speech: domain.SpeechIdle}
}

// CanAccept reports whether a SpeakRequested would be taken rather than dropped.
func (s State) CanAccept() bool {
	if s.Ended {
		return false
	}
	switch s.Speech {
	case domain.SpeechIdle:
		return true
	case domain.SpeechCandidateSpeaking:
		return s.Paused == nil
	default:
		return false
	}
}

// Step is the outcome of one transition.
type Step struct {
	State   State
	Effects []Effect
	// Path lists every speech state entered, in order, including immediate ones.
	Path []domain.SpeechState
	// Ignored is set when the event had no meaning in the current state.
	Ignored bool
}

// Changed reports whether the speech state moved.
func (s Step) Changed() bool {
	return len(s.Path) > 0
}

// Reduce applies e to s.
func Reduce(s State, e Event) Step {
	if s.Ended {
		return ignored(s)
	}
	if s.Speech == "" {
		s.Speech = domain.SpeechIdle
	}

	if _, ok := e.(Terminate); ok {
		return terminate(s)
	}

	switch s.Speech {
	case domain.SpeechIdle:
		return reduceIdle(s, e)
	case domain.SpeechInterviewerSpeaking:
		return reduceInterviewerSpeaking(s, e)
	case domain.SpeechCandidateSpeaking:
		return reduceCandidateSpeaking(s, e)
	case domain.SpeechCandidateSilenceWindow:
		return reduceSilenceWindow(s, e)
	default:
		// InterviewerPausedForCandidate is transient and never rests.
		return ignored(s)
	}
}

func reduceIdle(s State, e Event) Step {
	switch ev := e.(type) {
	case SpeakRequested:
		seg := ev.Segment
		s.Speech = domain.SpeechInterviewerSpeaking
		s.Active = &seg
		s.ActiveStarted = false
		return Step{
			State:   s,
			Effects: []Effect{{Kind: EffectStartSpeech, Segment: seg}},
			Path:    []domain.SpeechState{domain.SpeechInterviewerSpeaking},
		}
	case CandidateGrowth:
		s.Speech = domain.SpeechCandidateSpeaking
		return Step{State: s, Path: []domain.SpeechState{domain.SpeechCandidateSpeaking}}
	default:
		return ignored(s)
	}
}

func reduceInterviewerSpeaking(s State, e Event) Step {
	switch ev := e.(type) {
	case OutputStarted:
		if s.Active == nil || s.Active.Index != ev.Index || s.ActiveStarted {
			return ignored(s)
		}
		s.ActiveStarted = true
		return Step{State: s}
	case OutputEnded:
		if s.Active == nil || s.Active.Index != ev.Index {
			return ignored(s)
		}
		seg := *s.Active
		s.Speech = domain.SpeechIdle
		s.Active = nil
		s.ActiveStarted = false
		return Step{
			State:   s,
			Effects: []Effect{{Kind: EffectSegmentFinished, Segment: seg}},
			Path:    []domain.SpeechState{domain.SpeechIdle},
		}
	case CandidateGrowth:
		seg := *s.Active
		s.Paused = &seg
		s.PausedStarted = s.ActiveStarted
		s.Active = nil
		s.ActiveStarted = false
		s.Speech = domain.SpeechCandidateSpeaking
		return Step{
			State:   s,
			Effects: []Effect{{Kind: EffectPauseSpeech, Segment: seg, Started: s.PausedStarted}},
			Path: []domain.SpeechState{
				domain.SpeechInterviewerPausedForCandidate,
				domain.SpeechCandidateSpeaking,
			},
		}
	default:
		return ignored(s)
	}
}

func reduceCandidateSpeaking(s State, e Event) Step {
	switch ev := e.(type) {
	case SpeakRequested:
		if s.Paused != nil {
			return ignored(s)
		}
		seg := ev.Segment
		s.Paused = &seg
		s.PausedStarted = false
		return Step{State: s}
	case SilenceElapsed:
		if s.Paused != nil {
			s.Speech = domain.SpeechCandidateSilenceWindow
			return Step{
				State:   s,
				Effects: []Effect{{Kind: EffectScheduleResume, Segment: *s.Paused}},
				Path:    []domain.SpeechState{domain.SpeechCandidateSilenceWindow},
			}
		}
		s.Speech = domain.SpeechIdle
		return Step{
			State:   s,
			Effects: []Effect{{Kind: EffectAnswerComplete}},
			Path: []domain.SpeechState{
				domain.SpeechCandidateSilenceWindow,
				domain.SpeechIdle,
			},
		}
	case CandidateGrowth:
		return Step{State: s}
	default:
		return ignored(s)
	}
}

func reduceSilenceWindow(s State, e Event) Step {
	switch e.(type) {
	case ResumeDue:
		if s.Paused == nil {
			return ignored(s)
		}
		seg := *s.Paused
		started := s.PausedStarted
		s.Paused = nil
		s.PausedStarted = false
		s.Active = &seg
		s.ActiveStarted = false
		s.Speech = domain.SpeechInterviewerSpeaking
		return Step{
			State:   s,
			Effects: []Effect{{Kind: EffectResumeSpeech, Segment: seg, Started: started}},
			Path:    []domain.SpeechState{domain.SpeechInterviewerSpeaking},
		}
	case CandidateGrowth:
		s.Speech = domain.SpeechCandidateSpeaking
		return Step{
			State:   s,
			Effects: []Effect{{Kind: EffectCancelResume}},
			Path:    []domain.SpeechState{domain.SpeechCandidateSpeaking},
		}
	default:
		return ignored(s)
	}
}

func terminate(s State) Step {
	var path []domain.SpeechState
	if s.Speech != domain.SpeechIdle {
		path = []domain.SpeechState{domain.SpeechIdle}
	}
	return Step{
		State:   State{Speech: domain.SpeechIdle, Ended: true},
		Effects: []Effect{{Kind: EffectStopAll}},
		Path:    path,
	}
}

func ignored(s State) Step {
	return Step{State: s, Ignored: true}
}
