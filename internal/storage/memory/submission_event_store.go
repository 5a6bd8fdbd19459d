package memory

import (
	"context"
	"sort"
	"sync"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/storage"
)

// SubmissionEventStore is an in-memory implementation of storage.SubmissionEventStore.
type SubmissionEventStore struct {
	mu   sync.RWMutex
	data []*domain.SubmissionEvent
}

// NewSubmissionEventStore creates a new in-memory submission event store.
func NewSubmissionEventStore() *SubmissionEventStore {
	return &SubmissionEventStore{
		data: make([]*domain.SubmissionEvent, 0),
	}
}

// Insert appends a submission event.
func (s *SubmissionEventStore) Insert(_ context.Context, e *domain.SubmissionEvent) error {
	if e == nil || e.SubmissionID == "" || e.Status == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy
	copy := *e
	s.data = append(s.data, &copy)

	return nil
}

// GetBySubmissionID retrieves events of a submission in insertion order,
// stable-sorted by occurred_at.
func (s *SubmissionEventStore) GetBySubmissionID(_ context.Context, submissionID string) ([]*domain.SubmissionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SubmissionEvent
	for _, e := range s.data {
		if e.SubmissionID == submissionID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.Before(result[j].OccurredAt)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SubmissionEventStore = (*SubmissionEventStore)(nil)
