package orchestrator

import (
	"mime"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/tokenomics"
)

const dateLayout = "2006-01-02"

// BuildMetadata assembles the AssetMetadata document of a listing.
func BuildMetadata(d *domain.ListingDraft, files domain.FileManifest, owner string, now time.Time) *domain.AssetMetadata {
	derived := tokenomics.FromDraft(d.Tokenomics, now)

	t := domain.MetadataTokenomics{
		AssetValue:      d.Tokenomics.AssetValue,
		TokenSupply:     d.Tokenomics.TotalSupply,
		ProjectedIncome: d.Tokenomics.ProjectedIncome,
		AnnualIncome:    derived.AnnualIncome,
		PricePerToken:   derived.PricePerToken,
		DividendYield:   derived.DividendYield,
		PayoutFrequency: d.Tokenomics.PayoutFrequency,
	}
	if derived.NextPayout != nil {
		t.NextPayout = derived.NextPayout.Format(dateLayout)
	}
	if derived.RetentionPercentage.Valid {
		t.RetentionPercentage = derived.RetentionPercentage.Decimal
	} else {
		t.RetentionPercentage = decimal.Zero
	}
	if derived.InitialSupply != nil {
		t.InitialSupply = *derived.InitialSupply
	}

	c := d.TokenConfig
	return &domain.AssetMetadata{
		Schema:      domain.MetadataSchemaVersion,
		Name:        d.BasicInfo.Name,
		Description: d.BasicInfo.Description,
		Category:    d.BasicInfo.Category,
		Location:    d.BasicInfo.Location,
		Files:       files,
		Tokenomics:  t,
		TokenConfig: domain.MetadataToken{
			Name:       c.Name,
			Symbol:     c.Symbol,
			Decimals:   c.Decimals,
			SupplyType: c.SupplyType,
			KYCKey:     c.KYCKey,
			FreezeKey:  c.FreezeKey,
		},
		AdditionalInfo: d.AdditionalInfo,
		CreatedAt:      now.UTC(),
		Owner:          owner,
	}
}

// TokenParamsFor maps a draft and its metadata to issuance parameters.
func TokenParamsFor(d *domain.ListingDraft, m *domain.AssetMetadata) domain.TokenParams {
	c := d.TokenConfig
	return domain.TokenParams{
		Name:          c.Name,
		Symbol:        c.Symbol,
		Decimals:      c.Decimals,
		InitialSupply: m.Tokenomics.InitialSupply,
		TotalSupply:   d.Tokenomics.TotalSupply,
		MaxSupply:     c.MaxSupply,
		SupplyType:    c.SupplyType,
		Owner:         m.Owner,
		Memo:          d.BasicInfo.Name,
		KYCKey:        c.KYCKey,
		FreezeKey:     c.FreezeKey,
	}
}

// contentType resolves the MIME type anchored for a file.
func contentType(f *domain.File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if t := mime.TypeByExtension(filepath.Ext(f.Name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
