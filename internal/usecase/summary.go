package usecase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"

	"github.com/samber/lo"

	"interviewdesk/internal/domain"
)

const (
	minPlaceholderScore = 70
	maxPlaceholderScore = 100
)

var errNoScore = errors.New("session has no final score")

// BuildSummary turns a finished session into the result handed to the
// persistence service.
func BuildSummary(sessionID, applicationID string, state domain.SessionState) (domain.InterviewResult, error) {
	if !state.Ended {
		return domain.InterviewResult{}, domain.ErrSessionEnded
	}
	if state.FinalScore == nil {
		return domain.InterviewResult{}, errNoScore
	}

	transcript := lo.FilterMap(state.Transcript, func(entry domain.TranscriptEntry, _ int) (domain.TranscriptEntry, bool) {
		entry.Text = strings.TrimSpace(entry.Text)
		return entry, entry.Text != ""
	})

	return domain.InterviewResult{
		SessionID:     sessionID,
		ApplicationID: applicationID,
		Score:         *state.FinalScore,
		Transcript:    transcript,
	}, nil
}

// PlaceholderScorer stands in for a real evaluator: every completed
// interview scores uniformly in [70, 100].
type PlaceholderScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPlaceholderScorer uses rng when set, else the global source.
func NewPlaceholderScorer(rng *rand.Rand) *PlaceholderScorer {
	return &PlaceholderScorer{rng: rng}
}

func (s *PlaceholderScorer) Score(ctx context.Context, _ []domain.TranscriptEntry) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	span := maxPlaceholderScore - minPlaceholderScore + 1
	if s.rng == nil {
		return minPlaceholderScore + rand.Intn(span), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return minPlaceholderScore + s.rng.Intn(span), nil
}
