package domain

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Draft limits.
const (
	MaxDescriptionLength = 900
	MaxAdditionalImages  = 5
	MaxDecimals          = 18
)

// Allowed file extensions (lower case, with dot).
var (
	ImageExtensions     = []string{".png", ".jpg", ".jpeg"}
	DocumentExtensions  = []string{".pdf", ".doc", ".docx"}
	ValuationExtensions = []string{".pdf"}
)

// ValidationError lists field-level problems of a draft.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid listing: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Validate runs the structural checks that must pass before any stage starts.
// Returns *ValidationError or nil.
func (d *ListingDraft) Validate() error {
	if d == nil {
		return &ValidationError{Fields: map[string]string{"draft": "draft is required"}}
	}

	verr := &ValidationError{}

	// Info & location
	b := d.BasicInfo
	if strings.TrimSpace(b.Name) == "" {
		verr.add("basicInfo.name", "Asset name is required")
	}
	if strings.TrimSpace(b.Category) == "" {
		verr.add("basicInfo.category", "Category is required")
	}
	if strings.TrimSpace(b.Description) == "" {
		verr.add("basicInfo.description", "Description is required")
	} else if utf8.RuneCountInString(b.Description) > MaxDescriptionLength {
		verr.add("basicInfo.description", fmt.Sprintf("Description must be less than %d characters", MaxDescriptionLength))
	}
	if strings.TrimSpace(b.Location.Country) == "" {
		verr.add("basicInfo.location.country", "Country is required")
	}
	if strings.TrimSpace(b.Location.State) == "" {
		verr.add("basicInfo.location.state", "State is required")
	}
	if strings.TrimSpace(b.Location.City) == "" {
		verr.add("basicInfo.location.city", "City is required")
	}

	// Documents
	m := d.Media
	if m.PrimaryImage == nil {
		verr.add("media.primaryImage", "Primary image is required")
	} else if !hasExtension(m.PrimaryImage.Name, ImageExtensions) {
		verr.add("media.primaryImage", extensionMessage(ImageExtensions))
	}
	if len(m.AdditionalImages) > MaxAdditionalImages {
		verr.add("media.additionalImages", fmt.Sprintf("Maximum %d additional images allowed", MaxAdditionalImages))
	}
	for i, img := range m.AdditionalImages {
		if img == nil {
			verr.add(fmt.Sprintf("media.additionalImages[%d]", i), "File is empty")
			continue
		}
		if !hasExtension(img.Name, ImageExtensions) {
			verr.add(fmt.Sprintf("media.additionalImages[%d]", i), extensionMessage(ImageExtensions))
		}
	}
	if m.LegalDocs != nil && !hasExtension(m.LegalDocs.Name, DocumentExtensions) {
		verr.add("media.legalDocs", extensionMessage(DocumentExtensions))
	}
	if m.ValuationReport != nil && !hasExtension(m.ValuationReport.Name, ValuationExtensions) {
		verr.add("media.valuationReport", extensionMessage(ValuationExtensions))
	}

	// Token economics
	t := d.Tokenomics
	if !t.AssetValue.IsPositive() {
		verr.add("tokenomics.assetValue", "Asset value is required")
	}
	if t.TotalSupply <= 0 {
		verr.add("tokenomics.totalSupply", "Token supply is required")
	}
	if t.ProjectedIncome.IsNegative() {
		verr.add("tokenomics.projectedIncome", "Projected income must not be negative")
	}
	if !t.PayoutFrequency.Valid() {
		verr.add("tokenomics.payoutFrequency", "Payout frequency must be monthly, quarterly or annual")
	}
	if !validRetentionChoice(t.RetentionChoice) {
		verr.add("tokenomics.retentionChoice", "Unknown initial supply percentage")
	} else if strings.TrimSpace(t.RetentionChoice) == RetentionCustom && !validPercent(t.CustomRetention) {
		verr.add("tokenomics.customRetention", "Custom percentage must be a number")
	}

	// Token config
	c := d.TokenConfig
	if strings.TrimSpace(c.Name) == "" {
		verr.add("tokenConfig.name", "Token name is required")
	}
	if strings.TrimSpace(c.Symbol) == "" {
		verr.add("tokenConfig.symbol", "Token symbol is required")
	}
	if c.Decimals < 0 || c.Decimals > MaxDecimals {
		verr.add("tokenConfig.decimals", fmt.Sprintf("Decimals must be between 0 and %d", MaxDecimals))
	}
	switch c.SupplyType {
	case SupplyFinite:
		if t.TotalSupply <= 0 {
			verr.add("tokenConfig.supplyType", "Finite supply requires a total supply greater than zero")
		}
		if c.MaxSupply != nil && *c.MaxSupply != t.TotalSupply {
			verr.add("tokenConfig.maxSupply", "Max supply must equal total supply")
		}
	case SupplyInfinite:
		if c.MaxSupply != nil {
			verr.add("tokenConfig.maxSupply", "Infinite supply cannot have a max supply")
		}
	default:
		verr.add("tokenConfig.supplyType", "Supply type must be finite or infinite")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Files returns every present file in anchoring order:
// primary image, additional images in list order, legal doc, valuation report.
func (m Media) Files() []RoleFile {
	var files []RoleFile
	if m.PrimaryImage != nil {
		files = append(files, RoleFile{Role: RolePrimaryImage, File: m.PrimaryImage})
	}
	for _, img := range m.AdditionalImages {
		files = append(files, RoleFile{Role: RoleAdditionalImage, File: img})
	}
	if m.LegalDocs != nil {
		files = append(files, RoleFile{Role: RoleLegalDocs, File: m.LegalDocs})
	}
	if m.ValuationReport != nil {
		files = append(files, RoleFile{Role: RoleValuationReport, File: m.ValuationReport})
	}
	return files
}

// RoleFile is a file tagged with its role in the listing.
type RoleFile struct {
	Role FileRole
	File *File
}

func hasExtension(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func extensionMessage(allowed []string) string {
	return "File type must be one of " + strings.Join(allowed, ", ")
}

func validRetentionChoice(choice string) bool {
	choice = strings.TrimSpace(choice)
	if choice == "" || choice == RetentionCustom {
		return true
	}
	for _, c := range RetentionChoices {
		if c == choice {
			return true
		}
	}
	return false
}

// validPercent reports whether s parses as a number. Out-of-range values are
// clamped later, not rejected.
func validPercent(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}
