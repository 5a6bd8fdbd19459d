package idhash

import (
	"testing"

	"github.com/shopspring/decimal"

	"realestate-tokenizer/internal/domain"
)

func testDraft() *domain.ListingDraft {
	return &domain.ListingDraft{
		BasicInfo: domain.BasicInfo{
			Name:        "Maple Court",
			Category:    "residential",
			Description: "Duplex",
			Location:    domain.Location{Country: "CA", State: "ON", City: "Toronto"},
		},
		Media: domain.Media{
			PrimaryImage: &domain.File{Name: "front.png", Data: []byte("png-bytes")},
		},
		Tokenomics: domain.Tokenomics{
			AssetValue:      decimal.NewFromInt(900000),
			TotalSupply:     9000,
			PayoutFrequency: domain.PayoutQuarterly,
		},
		TokenConfig: domain.TokenConfig{Name: "Maple", Symbol: "MPL", Decimals: 0, SupplyType: domain.SupplyFinite},
	}
}

func TestComputeDraftKey_Determinism(t *testing.T) {
	a := ComputeDraftKey("0.0.1001", testDraft())
	b := ComputeDraftKey("0.0.1001", testDraft())

	if a != b {
		t.Errorf("ComputeDraftKey() not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("ComputeDraftKey() length = %d, want 64", len(a))
	}
}

func TestComputeDraftKey_DifferentInputs(t *testing.T) {
	base := ComputeDraftKey("0.0.1001", testDraft())

	// Different owner should produce different key
	if base == ComputeDraftKey("0.0.2002", testDraft()) {
		t.Error("Different owner should produce different key")
	}

	// Different file content should produce different key
	d := testDraft()
	d.Media.PrimaryImage.Data = []byte("other-bytes")
	if base == ComputeDraftKey("0.0.1001", d) {
		t.Error("Different file content should produce different key")
	}

	// Adding an optional file should produce different key
	d = testDraft()
	d.Media.LegalDocs = &domain.File{Name: "deed.pdf", Data: []byte("pdf")}
	if base == ComputeDraftKey("0.0.1001", d) {
		t.Error("Additional file should produce different key")
	}

	// Different supply should produce different key
	d = testDraft()
	d.Tokenomics.TotalSupply = 9001
	if base == ComputeDraftKey("0.0.1001", d) {
		t.Error("Different supply should produce different key")
	}
}

func TestComputeDraftKey_FieldBoundaries(t *testing.T) {
	a := testDraft()
	a.BasicInfo.Name = "a|b"
	a.BasicInfo.Category = "c"

	b := testDraft()
	b.BasicInfo.Name = "a"
	b.BasicInfo.Category = "b|c"

	if ComputeDraftKey("0.0.1001", a) == ComputeDraftKey("0.0.1001", b) {
		t.Error("Moving text between fields should produce different key")
	}

	c := testDraft()
	c.BasicInfo.Name = "a1"
	c.BasicInfo.Category = ":c"
	d := testDraft()
	d.BasicInfo.Name = "a"
	d.BasicInfo.Category = "1:c"
	if ComputeDraftKey("0.0.1001", c) == ComputeDraftKey("0.0.1001", d) {
		t.Error("Length prefixes must not collide")
	}
}

func TestComputeDraftKey_FileNameIgnored(t *testing.T) {
	base := ComputeDraftKey("0.0.1001", testDraft())

	d := testDraft()
	d.Media.PrimaryImage.Name = "renamed.png"
	if base != ComputeDraftKey("0.0.1001", d) {
		t.Error("Renaming a file without changing content should keep the key")
	}
}
