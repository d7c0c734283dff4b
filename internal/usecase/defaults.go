package usecase

import (
	"context"

	"interviewdesk/internal/domain"
)

type nopEventSink struct{}

func (nopEventSink) SessionStateChanged(domain.SessionPhase, domain.SessionStateReason) {}
func (nopEventSink) SpeechStateChanged(domain.SpeechState, domain.SpeechState)          {}
func (nopEventSink) TranscriptAppended(domain.TranscriptEntry)                          {}
func (nopEventSink) PartialTranscript(string)                                           {}
func (nopEventSink) DeviceChanged(domain.DeviceCapability)                              {}
func (nopEventSink) SessionError(domain.ErrorCode, string)                              {}
func (nopEventSink) InterviewCompleted(domain.InterviewResult)                          {}

type discardStore struct{}

func (discardStore) SubmitInterviewResult(context.Context, string, int, []domain.TranscriptEntry) error {
	return nil
}
