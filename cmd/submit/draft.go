package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/tokenomics"
)

// defaultDecimals applies when the draft file leaves decimals out.
const defaultDecimals = 2

// draftFile is the YAML form of a listing draft. Media entries are file
// paths relative to the draft file.
type draftFile struct {
	BasicInfo domain.BasicInfo `yaml:"basic_info"`
	Media     struct {
		PrimaryImage     string   `yaml:"primary_image"`
		AdditionalImages []string `yaml:"additional_images"`
		LegalDocs        string   `yaml:"legal_docs"`
		ValuationReport  string   `yaml:"valuation_report"`
	} `yaml:"media"`
	Tokenomics struct {
		AssetValue      string `yaml:"asset_value"`
		TotalSupply     string `yaml:"total_supply"`
		ProjectedIncome string `yaml:"projected_income"`
		PayoutFrequency string `yaml:"payout_frequency"`
		Retention       string `yaml:"retention"`
		CustomRetention string `yaml:"custom_retention"`
	} `yaml:"tokenomics"`
	Token struct {
		Name       string `yaml:"name"`
		Symbol     string `yaml:"symbol"`
		Decimals   *int   `yaml:"decimals"`
		SupplyType string `yaml:"supply_type"`
		MaxSupply  *int64 `yaml:"max_supply"`
		KYCKey     string `yaml:"kyc_key"`
		FreezeKey  string `yaml:"freeze_key"`
	} `yaml:"token"`
	AdditionalInfo struct {
		InsuranceDetails string `yaml:"insurance_details"`
		SpecialRights    string `yaml:"special_rights"`
	} `yaml:"additional_info"`
}

// loadDraft reads a draft file and the media it references.
func loadDraft(path string) (*domain.ListingDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}

	var f draftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid draft yaml %s: %w", path, err)
	}
	return f.toDraft(filepath.Dir(path))
}

func (f *draftFile) toDraft(dir string) (*domain.ListingDraft, error) {
	d := &domain.ListingDraft{
		BasicInfo: f.BasicInfo,
		Tokenomics: domain.Tokenomics{
			AssetValue:      tokenomics.ParseAmount(f.Tokenomics.AssetValue).Decimal,
			ProjectedIncome: tokenomics.ParseAmount(f.Tokenomics.ProjectedIncome).Decimal,
			PayoutFrequency: domain.PayoutFrequency(f.Tokenomics.PayoutFrequency),
			RetentionChoice: f.Tokenomics.Retention,
			CustomRetention: f.Tokenomics.CustomRetention,
		},
		TokenConfig: domain.TokenConfig{
			Name:       f.Token.Name,
			Symbol:     f.Token.Symbol,
			Decimals:   defaultDecimals,
			SupplyType: domain.SupplyType(f.Token.SupplyType),
			MaxSupply:  f.Token.MaxSupply,
			KYCKey:     f.Token.KYCKey,
			FreezeKey:  f.Token.FreezeKey,
		},
		AdditionalInfo: domain.AdditionalInfo{
			InsuranceDetails: f.AdditionalInfo.InsuranceDetails,
			SpecialRights:    f.AdditionalInfo.SpecialRights,
		},
	}
	if supply := tokenomics.ParseSupply(f.Tokenomics.TotalSupply); supply != nil {
		d.Tokenomics.TotalSupply = *supply
	}
	if f.Token.Decimals != nil {
		d.TokenConfig.Decimals = *f.Token.Decimals
	}
	if d.TokenConfig.SupplyType == "" {
		d.TokenConfig.SupplyType = domain.SupplyFinite
	}

	var err error
	if d.Media.PrimaryImage, err = readMedia(dir, f.Media.PrimaryImage); err != nil {
		return nil, err
	}
	if d.Media.LegalDocs, err = readMedia(dir, f.Media.LegalDocs); err != nil {
		return nil, err
	}
	if d.Media.ValuationReport, err = readMedia(dir, f.Media.ValuationReport); err != nil {
		return nil, err
	}
	for _, p := range f.Media.AdditionalImages {
		img, err := readMedia(dir, p)
		if err != nil {
			return nil, err
		}
		d.Media.AdditionalImages = append(d.Media.AdditionalImages, img)
	}
	return d, nil
}

func readMedia(dir, path string) (*domain.File, error) {
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	return &domain.File{Name: filepath.Base(path), Data: data}, nil
}
