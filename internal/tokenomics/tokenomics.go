// Package tokenomics derives listing economics from user input.
// Every function is pure and total: missing, zero or malformed input yields
// an invalid (unavailable) value instead of an error or a panic.
package tokenomics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"realestate-tokenizer/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
)

// Inputs is the raw form state. Amounts may contain thousands separators.
type Inputs struct {
	AssetValue      string `json:"assetValue"`
	TotalSupply     string `json:"totalSupply"`
	ProjectedIncome string `json:"projectedIncome"`
	PayoutFrequency string `json:"payoutFrequency"`
	RetentionChoice string `json:"retentionChoice"`
	CustomRetention string `json:"customRetention"`
}

// Result holds every derived value. Invalid entries are unavailable.
type Result struct {
	AnnualIncome        decimal.NullDecimal
	PricePerToken       decimal.NullDecimal
	DividendYield       decimal.NullDecimal
	NextPayout          *time.Time
	RetentionPercentage decimal.NullDecimal
	InitialSupply       *int64
}

// Derive recomputes all values from inputs. today anchors the payout date.
func Derive(in Inputs, today time.Time) Result {
	assetValue := ParseAmount(in.AssetValue)
	supply := ParseSupply(in.TotalSupply)
	income := ParseAmount(in.ProjectedIncome)
	freq := domain.PayoutFrequency(strings.ToLower(strings.TrimSpace(in.PayoutFrequency)))

	var r Result
	var totalSupply int64
	if supply != nil {
		totalSupply = *supply
	}
	if assetValue.Valid {
		r.PricePerToken = PricePerToken(assetValue.Decimal, totalSupply)
	}
	if income.Valid {
		r.AnnualIncome = AnnualIncome(income.Decimal, freq)
	}
	if assetValue.Valid {
		r.DividendYield = DividendYield(r.AnnualIncome, assetValue.Decimal)
	}
	if next, ok := NextPayout(today, freq); ok {
		r.NextPayout = &next
	}
	r.RetentionPercentage = RetentionPercentage(in.RetentionChoice, in.CustomRetention)
	if supply != nil && r.RetentionPercentage.Valid {
		initial := InitialSupply(totalSupply, r.RetentionPercentage.Decimal)
		r.InitialSupply = &initial
	}
	return r
}

// FromDraft derives values for a structured draft.
func FromDraft(t domain.Tokenomics, today time.Time) Result {
	var r Result
	r.PricePerToken = PricePerToken(t.AssetValue, t.TotalSupply)
	r.AnnualIncome = AnnualIncome(t.ProjectedIncome, t.PayoutFrequency)
	r.DividendYield = DividendYield(r.AnnualIncome, t.AssetValue)
	if next, ok := NextPayout(today, t.PayoutFrequency); ok {
		r.NextPayout = &next
	}
	r.RetentionPercentage = RetentionPercentage(t.RetentionChoice, t.CustomRetention)
	if t.TotalSupply > 0 && r.RetentionPercentage.Valid {
		initial := InitialSupply(t.TotalSupply, r.RetentionPercentage.Decimal)
		r.InitialSupply = &initial
	}
	return r
}

// PricePerToken is assetValue / totalSupply rounded to 2 decimal places.
// Unavailable when either input is not positive.
func PricePerToken(assetValue decimal.Decimal, totalSupply int64) decimal.NullDecimal {
	if !assetValue.IsPositive() || totalSupply <= 0 {
		return decimal.NullDecimal{}
	}
	return valid(assetValue.Div(decimal.NewFromInt(totalSupply)).Round(2))
}

// AnnualIncome scales the per-period income by the number of periods per year.
func AnnualIncome(projected decimal.Decimal, freq domain.PayoutFrequency) decimal.NullDecimal {
	periods, ok := periodsPerYear(freq)
	if !ok || projected.IsNegative() {
		return decimal.NullDecimal{}
	}
	return valid(projected.Mul(decimal.NewFromInt(periods)))
}

// DividendYield is annualIncome / assetValue * 100 rounded to 2 decimal places.
// Unavailable when assetValue is not positive or annual income is unavailable.
func DividendYield(annualIncome decimal.NullDecimal, assetValue decimal.Decimal) decimal.NullDecimal {
	if !annualIncome.Valid || !assetValue.IsPositive() {
		return decimal.NullDecimal{}
	}
	return valid(annualIncome.Decimal.Div(assetValue).Mul(hundred).Round(2))
}

// NextPayout returns today plus one payout period, truncated to the date.
// Month arithmetic clamps to the last day of the target month, so
// Jan 31 + 1 month is Feb 28 (or 29).
func NextPayout(today time.Time, freq domain.PayoutFrequency) (time.Time, bool) {
	var months int
	switch freq {
	case domain.PayoutMonthly:
		months = 1
	case domain.PayoutQuarterly:
		months = 3
	case domain.PayoutAnnual:
		months = 12
	default:
		return time.Time{}, false
	}
	return addMonths(today, months), true
}

// RetentionPercentage resolves the menu choice or the custom value.
// Custom values are clamped to [0, 100]. An empty choice means 0.
func RetentionPercentage(choice, custom string) decimal.NullDecimal {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return valid(decimal.Zero)
	}
	if choice == domain.RetentionCustom {
		pct := ParseAmount(custom)
		if !pct.Valid {
			return decimal.NullDecimal{}
		}
		return valid(clampPercent(pct.Decimal))
	}
	for _, c := range domain.RetentionChoices {
		if c == choice {
			return valid(decimal.RequireFromString(c))
		}
	}
	return decimal.NullDecimal{}
}

// InitialSupply is floor(totalSupply * pct / 100), never above totalSupply.
func InitialSupply(totalSupply int64, pct decimal.Decimal) int64 {
	if totalSupply <= 0 {
		return 0
	}
	pct = clampPercent(pct)
	initial := decimal.NewFromInt(totalSupply).Mul(pct).Div(hundred).Floor().IntPart()
	if initial > totalSupply {
		return totalSupply
	}
	if initial < 0 {
		return 0
	}
	return initial
}

// ParseAmount parses a decimal amount, ignoring thousands separators.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return valid(d)
}

// ParseSupply parses a positive integer token supply.
func ParseSupply(s string) *int64 {
	d := ParseAmount(s)
	if !d.Valid || !d.Decimal.IsPositive() || !d.Decimal.Equal(d.Decimal.Truncate(0)) {
		return nil
	}
	n := d.Decimal.IntPart()
	return &n
}

// Format renders d with 2 decimal places, or "" when unavailable.
func Format(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}

func periodsPerYear(freq domain.PayoutFrequency) (int64, bool) {
	switch freq {
	case domain.PayoutMonthly:
		return 12, true
	case domain.PayoutQuarterly:
		return 4, true
	case domain.PayoutAnnual:
		return 1, true
	}
	return 0, false
}

func clampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
