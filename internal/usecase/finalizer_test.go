package usecase

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"interviewdesk/internal/domain"
)

func endedState(score *int) domain.SessionState {
	now := time.Now()
	return domain.SessionState{
		Transcript: []domain.TranscriptEntry{
			{Role: domain.RoleInterviewer, Text: "Q1", Timestamp: now},
			{Role: domain.RoleCandidate, Text: "  ", Timestamp: now},
			{Role: domain.RoleCandidate, Text: " A1 ", Timestamp: now},
		},
		FinalScore: score,
		Ended:      true,
	}
}

func TestBuildSummary(t *testing.T) {
	t.Parallel()

	score := 88
	result, err := BuildSummary("s1", "app-1", endedState(&score))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if result.Score != 88 || result.SessionID != "s1" || result.ApplicationID != "app-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Transcript) != 2 || result.Transcript[1].Text != "A1" {
		t.Fatalf("unexpected transcript: %+v", result.Transcript)
	}
}

func TestBuildSummaryRequiresEndedAndScored(t *testing.T) {
	t.Parallel()

	if _, err := BuildSummary("s", "a", domain.SessionState{}); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected not-ended error, got %v", err)
	}
	if _, err := BuildSummary("s", "a", endedState(nil)); err == nil {
		t.Fatalf("expected missing score error")
	}
}

func TestPlaceholderScorerBounds(t *testing.T) {
	t.Parallel()

	scorers := []*PlaceholderScorer{
		NewPlaceholderScorer(nil),
		NewPlaceholderScorer(rand.New(rand.NewSource(1))),
	}
	for _, scorer := range scorers {
		seen := map[int]bool{}
		for i := 0; i < 2000; i++ {
			score, err := scorer.Score(context.Background(), nil)
			if err != nil {
				t.Fatalf("score failed: %v", err)
			}
			if score < 70 || score > 100 {
				t.Fatalf("score out of range: %d", score)
			}
			seen[score] = true
		}
		if !seen[70] || !seen[100] {
			t.Fatalf("expected both bounds to be reachable")
		}
	}
}

func TestResultFinalizerSubmitsOnce(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	events := &fakeEventSink{}
	f := newResultFinalizer(fixedScorer{score: 75}, store, events)

	state := endedState(nil)
	result, reason, err := f.Finalize(context.Background(), "s1", "app-1", &state)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if reason != domain.SessionReasonResultSubmitted {
		t.Fatalf("unexpected reason: %s", reason)
	}
	if state.FinalScore == nil || *state.FinalScore != 75 || result.Score != 75 {
		t.Fatalf("expected score to be recorded")
	}

	calls := store.snapshot()
	if len(calls) != 1 || calls[0].applicationID != "app-1" || calls[0].score != 75 || len(calls[0].transcript) != 2 {
		t.Fatalf("unexpected store calls: %+v", calls)
	}
}

func TestResultFinalizerStoreFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{err: errors.New("db down")}
	events := &fakeEventSink{}
	f := newResultFinalizer(fixedScorer{score: 90}, store, events)

	state := endedState(nil)
	result, reason, err := f.Finalize(context.Background(), "s1", "app-1", &state)
	if err == nil {
		t.Fatalf("expected store error")
	}
	if reason != domain.SessionReasonResultFailed || result.Score != 90 {
		t.Fatalf("unexpected outcome: %s %+v", reason, result)
	}
	if !events.hasError(domain.ErrorCodePersistence) {
		t.Fatalf("expected persistence error event")
	}
	if len(store.snapshot()) != 1 {
		t.Fatalf("store must not be retried")
	}
}

func TestResultFinalizerScoringFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	events := &fakeEventSink{}
	f := newResultFinalizer(fixedScorer{err: errors.New("grader offline")}, store, events)

	state := endedState(nil)
	_, reason, err := f.Finalize(context.Background(), "s1", "app-1", &state)
	if err == nil || reason != domain.SessionReasonScoringFailed {
		t.Fatalf("expected scoring failure, got %s %v", reason, err)
	}
	if len(store.snapshot()) != 0 {
		t.Fatalf("unscored result must not be submitted")
	}
	if !events.hasError(domain.ErrorCodeScoring) {
		t.Fatalf("expected scoring error event")
	}
}

type fixedScorer struct {
	score int
	err   error
}

func (f fixedScorer) Score(context.Context, []domain.TranscriptEntry) (int, error) {
	return f.score, f.err
}
