package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeviceKind identifies a capture capability.
type DeviceKind string

const (
	DeviceCamera     DeviceKind = "camera"
	DeviceMicrophone DeviceKind = "microphone"
	DeviceScreen     DeviceKind = "screen"
)

// DeviceKinds lists every capture capability in display order.
var DeviceKinds = []DeviceKind{DeviceCamera, DeviceMicrophone, DeviceScreen}

// ParseDeviceKind converts user input into a DeviceKind.
func ParseDeviceKind(value string) (DeviceKind, error) {
	kind := DeviceKind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case DeviceCamera, DeviceMicrophone, DeviceScreen:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown device kind %q", value)
	}
}

// DeviceCapability is the grant state of one capture capability.
type DeviceCapability struct {
	Kind     DeviceKind `json:"kind"`
	Granted  bool       `json:"granted"`
	Skipped  bool       `json:"skipped,omitempty"`
	StreamID string     `json:"streamId,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// DeviceSnapshot summarizes all capabilities at once.
type DeviceSnapshot struct {
	Camera     DeviceCapability `json:"camera"`
	Microphone DeviceCapability `json:"microphone"`
	Screen     DeviceCapability `json:"screen"`
}

// Get returns the capability for kind.
func (s DeviceSnapshot) Get(kind DeviceKind) DeviceCapability {
	switch kind {
	case DeviceCamera:
		return s.Camera
	case DeviceMicrophone:
		return s.Microphone
	case DeviceScreen:
		return s.Screen
	default:
		return DeviceCapability{Kind: kind}
	}
}

// InterviewMode decides which capabilities a job's interview needs.
type InterviewMode string

const (
	ModeText      InterviewMode = "text"
	ModeVoice     InterviewMode = "voice"
	ModeVideo     InterviewMode = "video"
	ModeProctored InterviewMode = "proctored"
)

// ParseInterviewMode converts user input into an InterviewMode. Empty input means voice.
func ParseInterviewMode(value string) (InterviewMode, error) {
	mode := InterviewMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case "":
		return ModeVoice, nil
	case ModeText, ModeVoice, ModeVideo, ModeProctored:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown interview mode %q", value)
	}
}

// RequiredDevices returns the capabilities requested at session start.
func (m InterviewMode) RequiredDevices() []DeviceKind {
	switch m {
	case ModeVoice:
		return []DeviceKind{DeviceMicrophone}
	case ModeVideo:
		return []DeviceKind{DeviceCamera, DeviceMicrophone}
	case ModeProctored:
		return []DeviceKind{DeviceCamera, DeviceMicrophone, DeviceScreen}
	default:
		return nil
	}
}

// SegmentKind classifies one unit of the interview script.
type SegmentKind string

const (
	SegmentIntro    SegmentKind = "intro"
	SegmentQuestion SegmentKind = "question"
	SegmentAck      SegmentKind = "ack"
	SegmentClosing  SegmentKind = "closing"
)

// ScriptSegment is immutable once the script is built.
type ScriptSegment struct {
	Index          int         `json:"index"`
	Kind           SegmentKind `json:"kind"`
	Text           string      `json:"text"`
	FallbackClipID string      `json:"fallbackClipId,omitempty"`
}

// ClipID is the key of the prerecorded clip played when synthesis is unavailable.
func (s ScriptSegment) ClipID() string {
	if s.FallbackClipID != "" {
		return s.FallbackClipID
	}
	return fmt.Sprintf("segment-%d", s.Index)
}

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// TranscriptEntry is one append-only line of the interview transcript.
type TranscriptEntry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SpeechState is the owner of the speaking channel.
type SpeechState string

const (
	SpeechIdle                          SpeechState = "idle"
	SpeechInterviewerSpeaking           SpeechState = "interviewer_speaking"
	SpeechInterviewerPausedForCandidate SpeechState = "interviewer_paused_for_candidate"
	SpeechCandidateSpeaking             SpeechState = "candidate_speaking"
	SpeechCandidateSilenceWindow        SpeechState = "candidate_silence_window"
)

// SessionState is the mutable interview progress owned by the session loop.
type SessionState struct {
	CurrentSegmentIndex int               `json:"currentSegmentIndex"`
	Transcript          []TranscriptEntry `json:"transcript"`
	PausedUtterance     *ScriptSegment    `json:"pausedUtterance,omitempty"`
	FinalScore          *int              `json:"finalScore,omitempty"`
	Ended               bool              `json:"ended"`
}

// InterviewResult is the immutable summary handed to the persistence service.
type InterviewResult struct {
	SessionID     string            `json:"sessionId"`
	ApplicationID string            `json:"applicationId"`
	Score         int               `json:"score"`
	Transcript    []TranscriptEntry `json:"transcript"`
}

// StoredResult is a persisted interview result.
type StoredResult struct {
	ID            string            `json:"id"`
	ApplicationID string            `json:"applicationId"`
	Score         int               `json:"score"`
	Transcript    []TranscriptEntry `json:"transcript"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// SynthesisEventKind enumerates text-to-speech capability events.
type SynthesisEventKind string

const (
	SynthesisStarted SynthesisEventKind = "started"
	SynthesisEnded   SynthesisEventKind = "ended"
	SynthesisFailed  SynthesisEventKind = "failed"
)

// SynthesisEvent is emitted by a text-to-speech or clip utterance.
type SynthesisEvent struct {
	Kind SynthesisEventKind
	Err  error
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// SessionPhase models the interview lifecycle around the speech state machine.
type SessionPhase string

const (
	PhaseIdle     SessionPhase = "idle"
	PhaseActive   SessionPhase = "active"
	PhaseEnded    SessionPhase = "ended"
	PhaseComplete SessionPhase = "complete"
	PhaseError    SessionPhase = "error"
)

// SessionStateReason provides a structured reason for lifecycle transitions.
type SessionStateReason string

const (
	SessionReasonReady            SessionStateReason = "ready"
	SessionReasonStarted          SessionStateReason = "interview_started"
	SessionReasonStartedDegraded  SessionStateReason = "interview_started_degraded"
	SessionReasonStartFailed      SessionStateReason = "start_failed"
	SessionReasonEnded            SessionStateReason = "interview_ended"
	SessionReasonResultSubmitted  SessionStateReason = "result_submitted"
	SessionReasonResultFailed     SessionStateReason = "result_failed"
	SessionReasonScoringFailed    SessionStateReason = "scoring_failed"
	SessionReasonContextCancelled SessionStateReason = "context_cancelled"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodePermission  ErrorCode = "permission"
	ErrorCodeSynthesis   ErrorCode = "synthesis"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeSubmission  ErrorCode = "submission"
	ErrorCodePersistence ErrorCode = "persistence"
	ErrorCodeScoring     ErrorCode = "scoring"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
)

// Status summarizes the current interview for UIs.
type Status struct {
	SessionID      string            `json:"sessionId,omitempty"`
	ApplicationID  string            `json:"applicationId,omitempty"`
	JobID          string            `json:"jobId,omitempty"`
	Mode           InterviewMode     `json:"mode,omitempty"`
	Phase          SessionPhase      `json:"phase"`
	Speech         SpeechState       `json:"speech"`
	CurrentSegment int               `json:"currentSegment"`
	TotalSegments  int               `json:"totalSegments"`
	AwaitingAnswer bool              `json:"awaitingAnswer"`
	Draft          string            `json:"draft,omitempty"`
	Devices        DeviceSnapshot    `json:"devices"`
	Fallback       bool              `json:"fallback"`
	Listening      bool              `json:"listening"`
	Ended          bool              `json:"ended"`
	FinalScore     *int              `json:"finalScore,omitempty"`
	Transcript     []TranscriptEntry `json:"transcript,omitempty"`
	Message        string            `json:"message,omitempty"`
}
