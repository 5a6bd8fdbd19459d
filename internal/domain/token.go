package domain

import "time"

// TokenParams are the inputs to token issuance.
type TokenParams struct {
	Name          string
	Symbol        string
	Decimals      int
	InitialSupply int64
	TotalSupply   int64
	// MaxSupply is nil for infinite supply.
	MaxSupply  *int64
	SupplyType SupplyType
	// Owner is the ledger account whose auth key becomes admin/supply key.
	Owner     string
	Memo      string
	KYCKey    string
	FreezeKey string
}

// TokenRecord is the read-optimized index entry for a published listing.
// Corresponds to token_records table in PostgreSQL.
type TokenRecord struct {
	TokenID     string    // PK, ledger token identifier
	MetadataCID string    // CID of AssetMetadata
	Owner       string    // owning account
	DraftKey    string    // idempotency key of the originating draft (unique)
	CreatedAt   time.Time // when the token was issued
}

// Receipt is the acknowledgement of an append-only log write.
type Receipt struct {
	TopicID        string
	Status         string
	SequenceNumber int64
	Timestamp      time.Time
}
