package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"interviewdesk/internal/bootstrap"
	"interviewdesk/internal/config"
	"interviewdesk/internal/domain"
	"interviewdesk/internal/logging"
	"interviewdesk/internal/usecase"
)

const (
	eventSession    = "interviewdesk:session"
	eventSpeech     = "interviewdesk:speech"
	eventTranscript = "interviewdesk:transcript"
	eventPartial    = "interviewdesk:partial"
	eventDevice     = "interviewdesk:device"
	eventError      = "interviewdesk:error"
	eventCompleted  = "interviewdesk:completed"
)

// emitFunc matches runtime.EventsEmit.
type emitFunc func(ctx context.Context, name string, data ...interface{})

// App is the Wails application root.
type App struct {
	ctx  context.Context
	emit emitFunc

	services   bootstrap.Services
	controller *usecase.InterviewController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, logging.FormatConsole)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	a.controller = services.Controller
	a.SessionStateChanged(domain.PhaseIdle, domain.SessionReasonReady)
}

func (a *App) shutdown(context.Context) {
	if a.controller == nil {
		return
	}
	if err := a.services.Close(); err != nil {
		a.services.Logger.Warn().Err(err).Msg("shutdown cleanup failed")
	}
}

// StartInterview begins an interview for the given application and job.
func (a *App) StartInterview(applicationID string, jobID string, mode string, skipDevices []string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	parsedMode, err := domain.ParseInterviewMode(mode)
	if err != nil {
		return domain.Status{}, err
	}
	req := usecase.StartRequest{ApplicationID: applicationID, JobID: jobID, Mode: parsedMode}
	for _, raw := range skipDevices {
		kind, err := domain.ParseDeviceKind(raw)
		if err != nil {
			return domain.Status{}, err
		}
		req.SkipDevices = append(req.SkipDevices, kind)
	}
	return a.controller.Start(a.ctx, req)
}

// SubmitAnswer records a typed answer.
func (a *App) SubmitAnswer(text string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.controller.SubmitAnswer(a.ctx, text)
}

// SubmitVoiceAnswer submits the transcribed draft.
func (a *App) SubmitVoiceAnswer() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.controller.SubmitVoiceAnswer(a.ctx)
}

// SkipQuestion moves on without an answer.
func (a *App) SkipQuestion() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.controller.ForceAdvance(a.ctx)
}

// SetDevice toggles camera, microphone, or screen capture.
func (a *App) SetDevice(kind string, on bool) (domain.DeviceSnapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.DeviceSnapshot{}, err
	}
	parsed, err := domain.ParseDeviceKind(kind)
	if err != nil {
		return domain.DeviceSnapshot{}, err
	}
	return a.controller.SetDevice(a.ctx, parsed, on)
}

// EndInterview stops the interview without submitting a result.
func (a *App) EndInterview() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.End(a.ctx)
}

// GetStatus returns the current interview status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{Phase: domain.PhaseError, Speech: domain.SpeechIdle, Message: a.bootErr.Error()}
		}
		return domain.Status{Phase: domain.PhaseIdle, Speech: domain.SpeechIdle}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	speech := "disabled"
	if a.cfg.Deepgram.APIKey != "" {
		speech = "Deepgram"
	}
	script := a.cfg.Script.Path
	if script == "" {
		script = "built-in question bank"
	}
	return map[string]string{
		"speech":      speech,
		"sttModel":    a.cfg.Deepgram.Model,
		"ttsModel":    a.cfg.Deepgram.SpeakModel,
		"language":    a.cfg.Deepgram.Language,
		"script":      script,
		"clipDir":     a.cfg.Script.ClipDir,
		"store":       a.cfg.Store.Driver,
		"audioInput":  a.cfg.Audio.InputDevice,
		"autoSubmit":  fmt.Sprintf("%t", a.cfg.Turn.AutoSubmit),
		"cameraInput": a.cfg.Audio.CameraDevice,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) send(name string, payload any) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, payload)
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(phase domain.SessionPhase, reason domain.SessionStateReason) {
	a.send(eventSession, map[string]string{
		"phase":   string(phase),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

func (a *App) SpeechStateChanged(from domain.SpeechState, to domain.SpeechState) {
	a.send(eventSpeech, map[string]string{"from": string(from), "to": string(to)})
}

func (a *App) TranscriptAppended(entry domain.TranscriptEntry) {
	a.send(eventTranscript, entry)
}

// PartialTranscript emits the live answer draft.
func (a *App) PartialTranscript(text string) {
	a.send(eventPartial, map[string]string{"text": text})
}

func (a *App) DeviceChanged(capability domain.DeviceCapability) {
	a.send(eventDevice, capability)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.send(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) InterviewCompleted(result domain.InterviewResult) {
	a.send(eventCompleted, result)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonStarted:
		return "Interview started"
	case domain.SessionReasonStartedDegraded:
		return "Interview started with limited devices"
	case domain.SessionReasonStartFailed:
		return "Interview could not start"
	case domain.SessionReasonEnded:
		return "Interview ended"
	case domain.SessionReasonResultSubmitted:
		return "Interview complete. Result submitted"
	case domain.SessionReasonResultFailed:
		return "Interview complete. Result could not be saved"
	case domain.SessionReasonScoringFailed:
		return "Interview complete. Scoring failed"
	case domain.SessionReasonContextCancelled:
		return "Interview stopped"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Device permission unavailable"
	case domain.ErrorCodeSynthesis:
		return "Interviewer voice unavailable"
	case domain.ErrorCodeRecognition:
		return "Speech recognition unavailable"
	case domain.ErrorCodeSubmission:
		return "Answer rejected"
	case domain.ErrorCodePersistence:
		return "Result could not be saved"
	case domain.ErrorCodeScoring:
		return "Scoring failed"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
