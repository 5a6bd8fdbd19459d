// Package issuer creates fungible tokens on the ledger on behalf of a listing owner.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/ledger"
)

var (
	// ErrInvalidParams is returned before any ledger call when the token
	// parameters are inconsistent.
	ErrInvalidParams = errors.New("invalid token parameters")

	// ErrAccountNotFound is returned when the owner account does not exist.
	ErrAccountNotFound = errors.New("owner account not found")

	// ErrRejected is returned when the ledger receipt status is not SUCCESS.
	ErrRejected = errors.New("token creation rejected")
)

// Options configures the Issuer.
type Options struct {
	Ledger            ledger.Client
	TreasuryAccountID string
	Logger            *log.Logger
	Verbose           bool
}

// Issuer implements the token issuance contract over a ledger client.
type Issuer struct {
	opts Options
}

// New creates a new Issuer.
func New(opts Options) *Issuer {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Issuer{opts: opts}
}

// Create validates params, resolves the owner's auth key and submits the
// token. Returns the ledger token ID.
func (i *Issuer) Create(ctx context.Context, p domain.TokenParams) (string, error) {
	req, err := i.buildRequest(p)
	if err != nil {
		return "", err
	}

	key, err := i.resolveOwnerKey(ctx, p.Owner)
	if err != nil {
		return "", err
	}
	req.AdminKey = key
	req.SupplyKey = key

	// Do not log the owner's key
	i.log("creating token %s (%s) for %s: initial=%d max=%d type=%s",
		req.Name, req.Symbol, p.Owner, req.InitialSupply, req.MaxSupply, req.SupplyType)

	receipt, err := i.opts.Ledger.CreateToken(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	if receipt.Status != ledger.StatusSuccess {
		return "", fmt.Errorf("%w: status %s", ErrRejected, receipt.Status)
	}
	if receipt.TokenID == "" {
		return "", fmt.Errorf("%w: receipt has no token id", ErrRejected)
	}

	i.log("token %s created (tx %s)", receipt.TokenID, receipt.TransactionID)
	return receipt.TokenID, nil
}

// buildRequest checks parameters without touching the ledger.
func (i *Issuer) buildRequest(p domain.TokenParams) (*ledger.CreateTokenRequest, error) {
	switch {
	case p.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
	case p.Symbol == "":
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidParams)
	case p.Decimals < 0 || p.Decimals > domain.MaxDecimals:
		return nil, fmt.Errorf("%w: decimals %d out of range", ErrInvalidParams, p.Decimals)
	case p.Owner == "":
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidParams)
	case p.InitialSupply < 0:
		return nil, fmt.Errorf("%w: negative initial supply", ErrInvalidParams)
	case i.opts.TreasuryAccountID == "":
		return nil, fmt.Errorf("%w: treasury account is not configured", ErrInvalidParams)
	}

	req := &ledger.CreateTokenRequest{
		Name:              p.Name,
		Symbol:            p.Symbol,
		Decimals:          p.Decimals,
		InitialSupply:     p.InitialSupply,
		TreasuryAccountID: i.opts.TreasuryAccountID,
		KYCKey:            p.KYCKey,
		FreezeKey:         p.FreezeKey,
		Memo:              p.Memo,
	}

	switch p.SupplyType {
	case domain.SupplyFinite:
		if p.TotalSupply <= 0 {
			return nil, fmt.Errorf("%w: finite supply requires total supply > 0", ErrInvalidParams)
		}
		maxSupply := p.TotalSupply
		if p.MaxSupply != nil {
			maxSupply = *p.MaxSupply
		}
		if maxSupply != p.TotalSupply {
			return nil, fmt.Errorf("%w: max supply %d must equal total supply %d",
				ErrInvalidParams, maxSupply, p.TotalSupply)
		}
		if p.InitialSupply > maxSupply {
			return nil, fmt.Errorf("%w: initial supply %d exceeds max supply %d",
				ErrInvalidParams, p.InitialSupply, maxSupply)
		}
		req.SupplyType = ledger.SupplyFinite
		req.MaxSupply = maxSupply
	case domain.SupplyInfinite:
		if p.MaxSupply != nil {
			return nil, fmt.Errorf("%w: infinite supply cannot have a max supply", ErrInvalidParams)
		}
		req.SupplyType = ledger.SupplyInfinite
	default:
		return nil, fmt.Errorf("%w: unknown supply type %q", ErrInvalidParams, p.SupplyType)
	}

	return req, nil
}

// resolveOwnerKey looks up the owner account and returns its validated key.
func (i *Issuer) resolveOwnerKey(ctx context.Context, owner string) (string, error) {
	info, err := i.opts.Ledger.GetAccountInfo(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("get account %s: %w", owner, err)
	}
	if info == nil || info.Deleted {
		return "", fmt.Errorf("%w: %s", ErrAccountNotFound, owner)
	}
	pub, err := ledger.ParsePublicKey(info.Key)
	if err != nil {
		return "", fmt.Errorf("account %s key: %w", owner, err)
	}
	return ledger.EncodePublicKey(pub), nil
}

func (i *Issuer) log(format string, args ...interface{}) {
	if i.opts.Verbose {
		i.opts.Logger.Printf("[issuer] "+format, args...)
	}
}
