package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/storage"
)

var baseTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestTokenRecordStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	rec := &domain.TokenRecord{
		TokenID:     "0.0.5001",
		MetadataCID: "bafkreimetadata",
		Owner:       "0.0.1001",
		DraftKey:    "draft-key-1",
		CreatedAt:   baseTime,
	}

	require.NoError(t, store.Insert(ctx, rec))

	byToken, err := store.GetByTokenID(ctx, "0.0.5001")
	require.NoError(t, err)
	assert.Equal(t, rec.MetadataCID, byToken.MetadataCID)
	assert.Equal(t, rec.Owner, byToken.Owner)
	assert.Equal(t, rec.DraftKey, byToken.DraftKey)
	assert.True(t, rec.CreatedAt.Equal(byToken.CreatedAt))

	byDraft, err := store.GetByDraftKey(ctx, "draft-key-1")
	require.NoError(t, err)
	assert.Equal(t, "0.0.5001", byDraft.TokenID)
}

func TestTokenRecordStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	_, err := store.GetByTokenID(ctx, "0.0.404")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByDraftKey(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenRecordStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	rec := &domain.TokenRecord{TokenID: "0.0.5001", MetadataCID: "m", Owner: "o", DraftKey: "k1", CreatedAt: baseTime}
	require.NoError(t, store.Insert(ctx, rec))

	err := store.Insert(ctx, &domain.TokenRecord{TokenID: "0.0.5001", MetadataCID: "m", Owner: "o", DraftKey: "k2", CreatedAt: baseTime})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.Insert(ctx, &domain.TokenRecord{TokenID: "0.0.5002", MetadataCID: "m", Owner: "o", DraftKey: "k1", CreatedAt: baseTime})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "idx_token_records_draft_key")

	// NULL draft keys never collide
	require.NoError(t, store.Insert(ctx, &domain.TokenRecord{TokenID: "0.0.5003", MetadataCID: "m", Owner: "o", CreatedAt: baseTime}))
	require.NoError(t, store.Insert(ctx, &domain.TokenRecord{TokenID: "0.0.5004", MetadataCID: "m", Owner: "o", CreatedAt: baseTime}))
}

func TestTokenRecordStore_GetByOwner(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	for _, r := range []*domain.TokenRecord{
		{TokenID: "0.0.3", MetadataCID: "m3", Owner: "alice", CreatedAt: baseTime.Add(2 * time.Hour)},
		{TokenID: "0.0.1", MetadataCID: "m1", Owner: "alice", CreatedAt: baseTime},
		{TokenID: "0.0.2", MetadataCID: "m2", Owner: "bob", CreatedAt: baseTime.Add(time.Hour)},
	} {
		require.NoError(t, store.Insert(ctx, r))
	}

	result, err := store.GetByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "0.0.1", result[0].TokenID)
	assert.Equal(t, "0.0.3", result[1].TokenID)
}
