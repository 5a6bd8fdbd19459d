package clickhouse

import (
	"context"
	"fmt"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/storage"
)

// SubmissionEventStore implements storage.SubmissionEventStore using ClickHouse.
type SubmissionEventStore struct {
	conn *Conn
}

// NewSubmissionEventStore creates a new SubmissionEventStore.
func NewSubmissionEventStore(conn *Conn) *SubmissionEventStore {
	return &SubmissionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SubmissionEventStore = (*SubmissionEventStore)(nil)

// Insert appends a stage transition event.
func (s *SubmissionEventStore) Insert(ctx context.Context, e *domain.SubmissionEvent) error {
	if e == nil || e.SubmissionID == "" || e.Status == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO submission_events (
			submission_id, draft_key, owner, stage, status,
			error_kind, message, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.SubmissionID, e.DraftKey, e.Owner, string(e.Stage), e.Status,
		e.ErrorKind, e.Message, e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert submission event: %w", err)
	}
	return nil
}

// GetBySubmissionID retrieves all events of a submission, ordered by occurred_at ASC.
func (s *SubmissionEventStore) GetBySubmissionID(ctx context.Context, submissionID string) ([]*domain.SubmissionEvent, error) {
	query := `
		SELECT
			submission_id, draft_key, owner, stage, status,
			error_kind, message, occurred_at
		FROM submission_events
		WHERE submission_id = ?
		ORDER BY occurred_at ASC, inserted_at ASC
	`

	rows, err := s.conn.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query submission events: %w", err)
	}
	defer rows.Close()

	var result []*domain.SubmissionEvent
	for rows.Next() {
		var e domain.SubmissionEvent
		var stage string
		if err := rows.Scan(
			&e.SubmissionID, &e.DraftKey, &e.Owner, &stage, &e.Status,
			&e.ErrorKind, &e.Message, &e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission event: %w", err)
		}
		e.Stage = domain.Stage(stage)
		e.OccurredAt = e.OccurredAt.UTC()
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission events: %w", err)
	}

	return result, nil
}
