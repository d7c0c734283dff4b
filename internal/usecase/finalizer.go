package usecase

import (
	"context"
	"fmt"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
)

type resultFinalizer struct {
	scorer ports.Scorer
	store  ports.ResultStore
	events ports.EventSink
}

func newResultFinalizer(scorer ports.Scorer, store ports.ResultStore, events ports.EventSink) resultFinalizer {
	return resultFinalizer{scorer: scorer, store: store, events: events}
}

// Finalize scores the ended session, builds its summary, and submits it once.
// state.FinalScore is set whenever scoring succeeds.
func (f resultFinalizer) Finalize(
	ctx context.Context,
	sessionID string,
	applicationID string,
	state *domain.SessionState,
) (domain.InterviewResult, domain.SessionStateReason, error) {
	score, err := f.scorer.Score(ctx, state.Transcript)
	if err != nil {
		f.events.SessionError(domain.ErrorCodeScoring, err.Error())
		return domain.InterviewResult{}, domain.SessionReasonScoringFailed, fmt.Errorf("score interview: %w", err)
	}
	state.FinalScore = &score

	result, err := BuildSummary(sessionID, applicationID, *state)
	if err != nil {
		f.events.SessionError(domain.ErrorCodeScoring, err.Error())
		return domain.InterviewResult{}, domain.SessionReasonScoringFailed, err
	}

	if err := f.store.SubmitInterviewResult(ctx, applicationID, result.Score, result.Transcript); err != nil {
		f.events.SessionError(domain.ErrorCodePersistence, "interview finished but the result could not be saved")
		return result, domain.SessionReasonResultFailed, fmt.Errorf("submit interview result: %w", err)
	}
	return result, domain.SessionReasonResultSubmitted, nil
}
