package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/storage"
)

// TokenRecordStore implements storage.TokenRecordStore using PostgreSQL.
type TokenRecordStore struct {
	pool *Pool
}

// NewTokenRecordStore creates a new TokenRecordStore.
func NewTokenRecordStore(pool *Pool) *TokenRecordStore {
	return &TokenRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

const tokenRecordColumns = `token_id, metadata_cid, owner, COALESCE(draft_key, ''), created_at`

// Insert adds a new record. Returns ErrDuplicateKey if token_id or draft_key exists.
func (s *TokenRecordStore) Insert(ctx context.Context, r *domain.TokenRecord) error {
	if r == nil || r.TokenID == "" || r.MetadataCID == "" || r.Owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_records (
			token_id, metadata_cid, owner, draft_key, created_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`

	_, err := s.pool.Exec(ctx, query,
		r.TokenID,
		r.MetadataCID,
		r.Owner,
		r.DraftKey,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w (%s)", storage.ErrDuplicateKey, constraint)
		}
		return fmt.Errorf("insert token record: %w", err)
	}
	return nil
}

// GetByTokenID retrieves a record by token ID. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenRecordColumns + ` FROM token_records WHERE token_id = $1`

	r, err := scanTokenRecord(s.pool.QueryRow(ctx, query, tokenID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token record by token id: %w", err)
	}
	return r, nil
}

// GetByDraftKey retrieves a record by draft key. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByDraftKey(ctx context.Context, draftKey string) (*domain.TokenRecord, error) {
	if draftKey == "" {
		return nil, storage.ErrNotFound
	}

	query := `SELECT ` + tokenRecordColumns + ` FROM token_records WHERE draft_key = $1`

	r, err := scanTokenRecord(s.pool.QueryRow(ctx, query, draftKey))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token record by draft key: %w", err)
	}
	return r, nil
}

// GetByOwner retrieves all records of an owner, ordered by created_at ASC.
func (s *TokenRecordStore) GetByOwner(ctx context.Context, owner string) ([]*domain.TokenRecord, error) {
	query := `
		SELECT ` + tokenRecordColumns + `
		FROM token_records
		WHERE owner = $1
		ORDER BY created_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query token records by owner: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenRecord
	for rows.Next() {
		r, err := scanTokenRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token record: %w", err)
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token records: %w", err)
	}

	return result, nil
}

// scanTokenRecord scans a single row into TokenRecord.
func scanTokenRecord(row pgx.Row) (*domain.TokenRecord, error) {
	var r domain.TokenRecord

	err := row.Scan(
		&r.TokenID,
		&r.MetadataCID,
		&r.Owner,
		&r.DraftKey,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
