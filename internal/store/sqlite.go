// Package store holds the places finished interview results are written to.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"interviewdesk/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS interview_results (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		transcript_json TEXT NOT NULL,
		created_at REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS interview_results_application
		ON interview_results(application_id, created_at);
`

// SQLite stores results in a local database file.
type SQLite struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the results database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{
		db:     db,
		logger: logger.With().Str("component", "sqlite_store").Logger(),
		now:    time.Now,
	}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) SubmitInterviewResult(ctx context.Context, applicationID string, score int, transcript []domain.TranscriptEntry) error {
	row, err := newResultRow(applicationID, score, transcript, s.now())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(row.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO interview_results (id, application_id, score, transcript_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, row.ID, row.ApplicationID, row.Score, string(payload), unixFromTime(row.CreatedAt)); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	s.logger.Info().Str("result_id", row.ID).Str("application_id", applicationID).Int("score", score).Msg("interview result stored")
	return nil
}

// ResultsForApplication returns stored results for an application, newest first.
func (s *SQLite) ResultsForApplication(ctx context.Context, applicationID string) ([]domain.StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, score, transcript_json, created_at
		FROM interview_results
		WHERE application_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []domain.StoredResult{}
	for rows.Next() {
		var r domain.StoredResult
		var transcriptJSON string
		var createdAt float64
		if err := rows.Scan(&r.ID, &r.ApplicationID, &r.Score, &transcriptJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(transcriptJSON), &r.Transcript); err != nil {
			return nil, fmt.Errorf("decode transcript for %s: %w", r.ID, err)
		}
		r.CreatedAt = timeFromUnix(createdAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

func newResultRow(applicationID string, score int, transcript []domain.TranscriptEntry, now time.Time) (domain.StoredResult, error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return domain.StoredResult{}, fmt.Errorf("application id is required")
	}
	if transcript == nil {
		transcript = []domain.TranscriptEntry{}
	}
	return domain.StoredResult{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Score:         score,
		Transcript:    transcript,
		CreatedAt:     now.UTC(),
	}, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
