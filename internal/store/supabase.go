package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"

	"interviewdesk/internal/domain"
)

// SupabaseConfig names the project and where results land in it.
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	Table          string
	Bucket         string
}

// Supabase inserts a result row through PostgREST and uploads the
// transcript JSON to Storage.
type Supabase struct {
	table  string
	bucket string
	logger zerolog.Logger
	now    func() time.Time

	insert func(table string, row any) error
	upload func(bucket string, path string, data []byte) error
}

type supabaseRow struct {
	ID            string                   `json:"id"`
	ApplicationID string                   `json:"application_id"`
	Score         int                      `json:"score"`
	Transcript    []domain.TranscriptEntry `json:"transcript"`
	CreatedAt     time.Time                `json:"created_at"`
}

func NewSupabase(cfg SupabaseConfig, logger zerolog.Logger) (*Supabase, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.ServiceRoleKey) == "" {
		return nil, errors.New("supabase url and service role key are required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		cfg.Table = "interview_results"
	}

	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Supabase{
		table:  cfg.Table,
		bucket: strings.TrimSpace(cfg.Bucket),
		logger: logger.With().Str("component", "supabase_store").Logger(),
		now:    time.Now,
		insert: func(table string, row any) error {
			_, _, err := client.From(table).Insert(row, false, "", "minimal", "").Execute()
			return err
		},
		upload: func(bucket string, path string, data []byte) error {
			_, err := client.Storage.UploadFile(bucket, path, bytes.NewReader(data))
			return err
		},
	}, nil
}

// SubmitInterviewResult writes the row first; the transcript object is only
// uploaded when a bucket is configured.
func (s *Supabase) SubmitInterviewResult(ctx context.Context, applicationID string, score int, transcript []domain.TranscriptEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := newResultRow(applicationID, score, transcript, s.now())
	if err != nil {
		return err
	}

	row := supabaseRow{
		ID:            result.ID,
		ApplicationID: result.ApplicationID,
		Score:         result.Score,
		Transcript:    result.Transcript,
		CreatedAt:     result.CreatedAt,
	}
	if err := s.insert(s.table, row); err != nil {
		return fmt.Errorf("failed to insert result into Supabase: %w", err)
	}

	if s.bucket != "" {
		payload, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		if err := s.upload(s.bucket, transcriptObjectPath(row.ApplicationID, row.ID), payload); err != nil {
			return fmt.Errorf("failed to upload transcript to Supabase: %w", err)
		}
	}

	s.logger.Info().Str("result_id", row.ID).Str("application_id", row.ApplicationID).Int("score", score).Msg("interview result stored")
	return nil
}

func transcriptObjectPath(applicationID string, resultID string) string {
	return applicationID + "/" + resultID + ".json"
}
