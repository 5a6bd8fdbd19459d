package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"realestate-tokenizer/internal/domain"
)

// ComputeDraftKey computes the idempotency key of a submission using SHA256.
// Formula: SHA256 over owner, basic info, tokenomics, token config, additional
// info and role:digest per file, each field written as <byte length>:<value>
// so no field boundary can be shifted. File contents enter through their
// digests, in anchoring order.
// Returns hex-encoded hash (64 characters).
func ComputeDraftKey(owner string, d *domain.ListingDraft) string {
	b := d.BasicInfo
	t := d.Tokenomics
	c := d.TokenConfig

	maxSupply := ""
	if c.MaxSupply != nil {
		maxSupply = fmt.Sprintf("%d", *c.MaxSupply)
	}

	parts := []string{
		owner,
		b.Name, b.Category, b.Description,
		b.Location.Country, b.Location.State, b.Location.City,
		t.AssetValue.String(),
		fmt.Sprintf("%d", t.TotalSupply),
		t.ProjectedIncome.String(),
		string(t.PayoutFrequency),
		t.RetentionChoice, t.CustomRetention,
		c.Name, c.Symbol,
		fmt.Sprintf("%d", c.Decimals),
		string(c.SupplyType), maxSupply,
		c.KYCKey, c.FreezeKey,
		d.AdditionalInfo.InsuranceDetails, d.AdditionalInfo.SpecialRights,
	}
	for _, f := range d.Media.Files() {
		parts = append(parts, string(f.Role)+":"+ComputeFileHash(f.File.Data))
	}

	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
