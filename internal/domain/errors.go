package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyAnswer      = errors.New("answer text is empty")
	ErrSessionEnded     = errors.New("interview session already ended")
	ErrQuestionNotAsked = errors.New("the next question has not been asked yet")
	ErrEmptyScript      = errors.New("interview script has no segments")
	ErrScriptNotClosed  = errors.New("interview script must end with a closing segment")
)

// PermissionError reports a denied or absent capture capability.
type PermissionError struct {
	Kind DeviceKind
	Err  error
}

func (e *PermissionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s permission unavailable", e.Kind)
	}
	return fmt.Sprintf("%s permission unavailable: %v", e.Kind, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// Synthesis failure reasons.
const (
	SynthesisReasonUnsupported  = "unsupported"
	SynthesisReasonFailed       = "failed"
	SynthesisReasonStartTimeout = "start_timeout"
)

// SynthesisError reports a text-to-speech engine that is unsupported, failed, or never started.
type SynthesisError struct {
	Segment int
	Reason  string
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech synthesis %s for segment %d", e.Reason, e.Segment)
	}
	return fmt.Sprintf("speech synthesis %s for segment %d: %v", e.Reason, e.Segment, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Recognition failure reasons.
const (
	RecognitionReasonUnsupported = "unsupported"
	RecognitionReasonTerminated  = "terminated"
	RecognitionReasonDisabled    = "disabled"
)

// RecognitionError reports a speech-to-text engine that is unsupported or stopped unexpectedly.
type RecognitionError struct {
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return "speech recognition " + e.Reason
	}
	return fmt.Sprintf("speech recognition %s: %v", e.Reason, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// SubmissionError rejects an answer submission without mutating the session.
type SubmissionError struct {
	Reason error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("answer rejected: %v", e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Reason }
