package storage

import (
	"context"

	"realestate-tokenizer/internal/domain"
)

// TokenRecordStore provides access to token_records storage.
// It is a read-optimized index of the registry log.
type TokenRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if token_id or draft_key exists.
	Insert(ctx context.Context, r *domain.TokenRecord) error

	// GetByTokenID retrieves a record by token ID. Returns ErrNotFound if not exists.
	GetByTokenID(ctx context.Context, tokenID string) (*domain.TokenRecord, error)

	// GetByDraftKey retrieves the record created from a draft. Returns ErrNotFound if not exists.
	GetByDraftKey(ctx context.Context, draftKey string) (*domain.TokenRecord, error)

	// GetByOwner retrieves all records of an owner, ordered by created_at ASC.
	GetByOwner(ctx context.Context, owner string) ([]*domain.TokenRecord, error)
}

// SubmissionEventStore provides access to submission_events storage.
// Events are append-only.
type SubmissionEventStore interface {
	// Insert appends a stage transition event.
	Insert(ctx context.Context, e *domain.SubmissionEvent) error

	// GetBySubmissionID retrieves all events of a submission, ordered by occurred_at ASC.
	GetBySubmissionID(ctx context.Context, submissionID string) ([]*domain.SubmissionEvent, error)
}
