package domain

import (
	"github.com/shopspring/decimal"
)

// PayoutFrequency is the dividend payout period.
type PayoutFrequency string

// PayoutFrequency values.
const (
	PayoutMonthly   PayoutFrequency = "monthly"
	PayoutQuarterly PayoutFrequency = "quarterly"
	PayoutAnnual    PayoutFrequency = "annual"
)

// Valid reports whether f is a known frequency.
func (f PayoutFrequency) Valid() bool {
	switch f {
	case PayoutMonthly, PayoutQuarterly, PayoutAnnual:
		return true
	}
	return false
}

// SupplyType is whether a token's issuable amount is fixed or open-ended.
type SupplyType string

// SupplyType values.
const (
	SupplyFinite   SupplyType = "finite"
	SupplyInfinite SupplyType = "infinite"
)

// RetentionCustom selects a user-entered retention percentage.
const RetentionCustom = "custom"

// RetentionChoices are the fixed retention menu entries (percent).
var RetentionChoices = []string{"0", "10", "25", "50", "60", "75"}

// Location is where the property is. All three parts are required together.
type Location struct {
	Country string `json:"country" yaml:"country"`
	State   string `json:"state" yaml:"state"`
	City    string `json:"city" yaml:"city"`
}

// BasicInfo is step one of the listing form.
type BasicInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Location    Location `json:"location" yaml:"location"`
}

// File is an in-memory file attached to a draft.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Media holds the listing files.
type Media struct {
	PrimaryImage     *File
	AdditionalImages []*File
	LegalDocs        *File
	ValuationReport  *File
}

// Tokenomics holds the user-entered economic inputs.
// Derived values are computed by the tokenomics package.
type Tokenomics struct {
	AssetValue      decimal.Decimal `json:"assetValue"`
	TotalSupply     int64           `json:"totalSupply"`
	ProjectedIncome decimal.Decimal `json:"projectedIncome"`
	PayoutFrequency PayoutFrequency `json:"payoutFrequency"`
	// RetentionChoice is one of RetentionChoices or RetentionCustom.
	RetentionChoice string `json:"retentionChoice"`
	// CustomRetention is read only when RetentionChoice is RetentionCustom.
	CustomRetention string `json:"customRetention,omitempty"`
}

// TokenConfig holds the ledger token settings.
type TokenConfig struct {
	Name       string     `json:"name"`
	Symbol     string     `json:"symbol"`
	Decimals   int        `json:"decimals"`
	SupplyType SupplyType `json:"supplyType"`
	// MaxSupply is optional; when set for a finite token it must equal TotalSupply.
	MaxSupply *int64 `json:"maxSupply,omitempty"`
	KYCKey    string `json:"kycKey,omitempty"`
	FreezeKey string `json:"freezeKey,omitempty"`
}

// AdditionalInfo is free text shown on the listing page.
type AdditionalInfo struct {
	InsuranceDetails string `json:"insuranceDetails"`
	SpecialRights    string `json:"specialRights"`
}

// ListingDraft is the input to the submission pipeline.
type ListingDraft struct {
	BasicInfo      BasicInfo      `json:"basicInfo"`
	Media          Media          `json:"-"`
	Tokenomics     Tokenomics     `json:"tokenomics"`
	TokenConfig    TokenConfig    `json:"tokenConfig"`
	AdditionalInfo AdditionalInfo `json:"additionalInfo"`
}

// Submission pairs a draft with the connected account submitting it.
type Submission struct {
	ID    string
	Draft *ListingDraft
	// Owner is the connected wallet account. Checked at the metadata stage.
	Owner string
}
