package ports

import (
	"context"
	"io"

	"interviewdesk/internal/domain"
)

// CaptureConfig describes how each capture source should be opened.
type CaptureConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string

	CameraFormat string
	CameraDevice string
	ScreenFormat string
	ScreenDevice string
}

// MediaStream is a live capture stream exclusively owned by the device manager.
type MediaStream interface {
	io.ReadCloser
	Kind() domain.DeviceKind
	ID() string
	Stop() error
}

// MediaCapture opens camera, microphone, and screen capture streams.
type MediaCapture interface {
	Request(ctx context.Context, kind domain.DeviceKind) (MediaStream, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// Utterance is one in-flight synthesized or prerecorded piece of speech.
// Events is closed after the terminal ended or failed event. A cancelled
// utterance closes Events without one.
type Utterance interface {
	Events() <-chan domain.SynthesisEvent
	Pause() error
	Resume() error
	Cancel()
}

// SpeechSynthesizer turns text into audible speech.
type SpeechSynthesizer interface {
	Speak(ctx context.Context, text string, voice string) (Utterance, error)
}

// ClipPlayer plays a prerecorded clip by key.
type ClipPlayer interface {
	Play(ctx context.Context, clipID string) (Utterance, error)
}

// PCMSink accepts raw linear16 audio for playback.
type PCMSink interface {
	Write(p []byte) (int, error)
	Pause()
	Resume()
	// Close waits for buffered audio to finish playing.
	Close() error
	// Abort stops playback immediately.
	Abort()
}

// PCMPlayer opens playback sinks.
type PCMPlayer interface {
	Open(ctx context.Context, sampleRate int) (PCMSink, error)
}

// ResultStore is the persistence collaborator for finished interviews.
type ResultStore interface {
	SubmitInterviewResult(ctx context.Context, applicationID string, score int, transcript []domain.TranscriptEntry) error
}

// ResultHistory lists previously stored results.
type ResultHistory interface {
	ResultsForApplication(ctx context.Context, applicationID string) ([]domain.StoredResult, error)
}

// ScriptSource supplies the ordered script for a job.
type ScriptSource interface {
	Script(ctx context.Context, jobID string) ([]domain.ScriptSegment, error)
}

// Scorer grades a finished transcript.
type Scorer interface {
	Score(ctx context.Context, transcript []domain.TranscriptEntry) (int, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(phase domain.SessionPhase, reason domain.SessionStateReason)
	SpeechStateChanged(from domain.SpeechState, to domain.SpeechState)
	TranscriptAppended(entry domain.TranscriptEntry)
	PartialTranscript(text string)
	DeviceChanged(capability domain.DeviceCapability)
	SessionError(code domain.ErrorCode, detail string)
	InterviewCompleted(result domain.InterviewResult)
}
