package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MetadataSchemaVersion is the current AssetMetadata schema tag.
const MetadataSchemaVersion = "realestate-asset/v1"

// AssetMetadata is the JSON document pinned to content storage.
// Its CID is the canonical identity of the listing.
type AssetMetadata struct {
	Schema         string             `json:"schema"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Category       string             `json:"category"`
	Location       Location           `json:"location"`
	Files          FileManifest       `json:"files"`
	Tokenomics     MetadataTokenomics `json:"tokenomics"`
	TokenConfig    MetadataToken      `json:"tokenConfig"`
	AdditionalInfo AdditionalInfo     `json:"additionalInfo"`
	CreatedAt      time.Time          `json:"createdAt"`
	Owner          string             `json:"owner"`
}

// MetadataTokenomics is the tokenomics section of AssetMetadata.
// Nullable values are absent when the derivation is unavailable.
type MetadataTokenomics struct {
	AssetValue          decimal.Decimal     `json:"assetValue"`
	TokenSupply         int64               `json:"tokenSupply"`
	ProjectedIncome     decimal.Decimal     `json:"projectedIncome"`
	AnnualIncome        decimal.NullDecimal `json:"annualIncome"`
	PricePerToken       decimal.NullDecimal `json:"pricePerTokenUSD"`
	DividendYield       decimal.NullDecimal `json:"dividendYield"`
	PayoutFrequency     PayoutFrequency     `json:"payoutFrequency"`
	NextPayout          string              `json:"nextPayout,omitempty"`
	RetentionPercentage decimal.Decimal     `json:"retentionPercentage"`
	InitialSupply       int64               `json:"initialSupply"`
}

// MetadataToken is the token configuration section of AssetMetadata.
type MetadataToken struct {
	Name       string     `json:"name"`
	Symbol     string     `json:"symbol"`
	Decimals   int        `json:"decimals"`
	SupplyType SupplyType `json:"supplyType"`
	KYCKey     string     `json:"kycKey,omitempty"`
	FreezeKey  string     `json:"freezeKey,omitempty"`
}

// ErrInvalidMetadata is returned when AssetMetadata fails schema checks.
var ErrInvalidMetadata = errors.New("invalid asset metadata")

// Validate checks the metadata against the schema before upload.
func (m *AssetMetadata) Validate() error {
	switch {
	case m.Schema != MetadataSchemaVersion:
		return fmt.Errorf("%w: unsupported schema %q", ErrInvalidMetadata, m.Schema)
	case m.Owner == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidMetadata)
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMetadata)
	case m.Files.PrimaryImage == nil || m.Files.PrimaryImage.CID == "":
		return fmt.Errorf("%w: primary image CID is required", ErrInvalidMetadata)
	case m.CreatedAt.IsZero():
		return fmt.Errorf("%w: createdAt is required", ErrInvalidMetadata)
	case m.Tokenomics.TokenSupply <= 0:
		return fmt.Errorf("%w: token supply must be positive", ErrInvalidMetadata)
	case m.Tokenomics.InitialSupply < 0 || m.Tokenomics.InitialSupply > m.Tokenomics.TokenSupply:
		return fmt.Errorf("%w: initial supply %d outside [0, %d]", ErrInvalidMetadata,
			m.Tokenomics.InitialSupply, m.Tokenomics.TokenSupply)
	}
	for _, f := range m.Files.Entries() {
		if f.CID == "" || f.Hash == "" {
			return fmt.Errorf("%w: %s is missing cid or hash", ErrInvalidMetadata, f.Role)
		}
	}
	return nil
}
