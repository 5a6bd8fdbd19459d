package memory

import (
	"context"
	"sort"
	"sync"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/storage"
)

// TokenRecordStore is an in-memory implementation of storage.TokenRecordStore.
type TokenRecordStore struct {
	mu         sync.RWMutex
	byToken    map[string]*domain.TokenRecord // keyed by token_id
	byDraftKey map[string]*domain.TokenRecord // keyed by draft_key (unique)
}

// NewTokenRecordStore creates a new in-memory token record store.
func NewTokenRecordStore() *TokenRecordStore {
	return &TokenRecordStore{
		byToken:    make(map[string]*domain.TokenRecord),
		byDraftKey: make(map[string]*domain.TokenRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if token_id or draft_key already exists.
func (s *TokenRecordStore) Insert(_ context.Context, r *domain.TokenRecord) error {
	if r == nil || r.TokenID == "" || r.MetadataCID == "" || r.Owner == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byToken[r.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	if r.DraftKey != "" {
		if _, exists := s.byDraftKey[r.DraftKey]; exists {
			return storage.ErrDuplicateKey
		}
	}

	recCopy := *r
	s.byToken[r.TokenID] = &recCopy
	if r.DraftKey != "" {
		s.byDraftKey[r.DraftKey] = &recCopy
	}
	return nil
}

// GetByTokenID retrieves a record by token ID. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByTokenID(_ context.Context, tokenID string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byToken[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// GetByDraftKey retrieves a record by draft key. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByDraftKey(_ context.Context, draftKey string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byDraftKey[draftKey]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// GetByOwner retrieves all records of an owner, ordered by created_at ASC.
func (s *TokenRecordStore) GetByOwner(_ context.Context, owner string) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRecord
	for _, r := range s.byToken {
		if r.Owner == owner {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].TokenID < result[j].TokenID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)
