package storage

import (
	"context"
	"errors"
	"time"

	"realestate-tokenizer/internal/domain"
)

// QueryObserver is called after every store operation.
// Lookups that end in ErrNotFound are reported with a nil error.
type QueryObserver func(database, operation string, d time.Duration, err error)

// InstrumentedTokenRecordStore reports every call of the wrapped store.
type InstrumentedTokenRecordStore struct {
	next     TokenRecordStore
	database string
	observe  QueryObserver
}

var _ TokenRecordStore = (*InstrumentedTokenRecordStore)(nil)

// InstrumentTokenRecords wraps s. database labels the backend ("postgres", "memory").
func InstrumentTokenRecords(s TokenRecordStore, database string, observe QueryObserver) *InstrumentedTokenRecordStore {
	return &InstrumentedTokenRecordStore{next: s, database: database, observe: observe}
}

func (s *InstrumentedTokenRecordStore) Insert(ctx context.Context, r *domain.TokenRecord) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.report("token_records.insert", start, err)
	return err
}

func (s *InstrumentedTokenRecordStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.TokenRecord, error) {
	start := time.Now()
	r, err := s.next.GetByTokenID(ctx, tokenID)
	s.report("token_records.get_by_token_id", start, err)
	return r, err
}

func (s *InstrumentedTokenRecordStore) GetByDraftKey(ctx context.Context, draftKey string) (*domain.TokenRecord, error) {
	start := time.Now()
	r, err := s.next.GetByDraftKey(ctx, draftKey)
	s.report("token_records.get_by_draft_key", start, err)
	return r, err
}

func (s *InstrumentedTokenRecordStore) GetByOwner(ctx context.Context, owner string) ([]*domain.TokenRecord, error) {
	start := time.Now()
	r, err := s.next.GetByOwner(ctx, owner)
	s.report("token_records.get_by_owner", start, err)
	return r, err
}

func (s *InstrumentedTokenRecordStore) report(op string, start time.Time, err error) {
	if s.observe != nil {
		s.observe(s.database, op, time.Since(start), queryError(err))
	}
}

// InstrumentedSubmissionEventStore reports every call of the wrapped store.
type InstrumentedSubmissionEventStore struct {
	next     SubmissionEventStore
	database string
	observe  QueryObserver
}

var _ SubmissionEventStore = (*InstrumentedSubmissionEventStore)(nil)

// InstrumentSubmissionEvents wraps s.
func InstrumentSubmissionEvents(s SubmissionEventStore, database string, observe QueryObserver) *InstrumentedSubmissionEventStore {
	return &InstrumentedSubmissionEventStore{next: s, database: database, observe: observe}
}

func (s *InstrumentedSubmissionEventStore) Insert(ctx context.Context, e *domain.SubmissionEvent) error {
	start := time.Now()
	err := s.next.Insert(ctx, e)
	s.report("submission_events.insert", start, err)
	return err
}

func (s *InstrumentedSubmissionEventStore) GetBySubmissionID(ctx context.Context, submissionID string) ([]*domain.SubmissionEvent, error) {
	start := time.Now()
	events, err := s.next.GetBySubmissionID(ctx, submissionID)
	s.report("submission_events.get_by_submission_id", start, err)
	return events, err
}

func (s *InstrumentedSubmissionEventStore) report(op string, start time.Time, err error) {
	if s.observe != nil {
		s.observe(s.database, op, time.Since(start), queryError(err))
	}
}

func queryError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
