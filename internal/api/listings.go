package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/registry"
	"realestate-tokenizer/internal/storage"
	"realestate-tokenizer/internal/tokenomics"
)

// previewResponse carries the derived values formatted for display.
// Unavailable values are empty strings or null.
type previewResponse struct {
	AnnualIncome        string  `json:"annualIncome"`
	PricePerToken       string  `json:"pricePerToken"`
	DividendYield       string  `json:"dividendYield"`
	NextPayout          *string `json:"nextPayout"`
	RetentionPercentage string  `json:"retentionPercentage"`
	InitialSupply       *int64  `json:"initialSupply"`
}

func (s *Server) preview(c *gin.Context) {
	var in tokenomics.Inputs
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}

	r := tokenomics.Derive(in, s.opts.Clock())
	resp := previewResponse{
		AnnualIncome:        tokenomics.Format(r.AnnualIncome),
		PricePerToken:       tokenomics.Format(r.PricePerToken),
		DividendYield:       tokenomics.Format(r.DividendYield),
		RetentionPercentage: tokenomics.Format(r.RetentionPercentage),
		InitialSupply:       r.InitialSupply,
	}
	if r.NextPayout != nil {
		next := r.NextPayout.Format("2006-01-02")
		resp.NextPayout = &next
	}
	c.JSON(http.StatusOK, resp)
}

type listingResponse struct {
	TokenID     string    `json:"tokenId"`
	MetadataCID string    `json:"metadataCid"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toListing(r *domain.TokenRecord) listingResponse {
	return listingResponse{
		TokenID:     r.TokenID,
		MetadataCID: r.MetadataCID,
		Owner:       r.Owner,
		CreatedAt:   r.CreatedAt,
	}
}

func (s *Server) getListing(c *gin.Context) {
	rec, err := s.opts.Records.GetByTokenID(c.Request.Context(), c.Param("tokenId"))
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusNotFound, fmt.Errorf("listing %s not found", c.Param("tokenId")))
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, toListing(rec))
}

func (s *Server) listingsByOwner(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		abort(c, http.StatusBadRequest, errors.New("query parameter owner is required"))
		return
	}

	recs, err := s.opts.Records.GetByOwner(c.Request.Context(), owner)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}

	resp := make([]listingResponse, 0, len(recs))
	for _, r := range recs {
		resp = append(resp, toListing(r))
	}
	c.JSON(http.StatusOK, resp)
}

// registryEntries reads published listings from the registry log.
// Optional query parameters: after (sequence number), limit.
func (s *Server) registryEntries(c *gin.Context) {
	var opts registry.ReadOpts
	var err error
	if v := c.Query("after"); v != "" {
		if opts.AfterSequence, err = strconv.ParseInt(v, 10, 64); err != nil || opts.AfterSequence < 0 {
			abort(c, http.StatusBadRequest, fmt.Errorf("invalid after %q", v))
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		if opts.Limit, err = strconv.Atoi(v); err != nil || opts.Limit < 0 {
			abort(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
	}

	entries, err := s.opts.Registry.Entries(c.Request.Context(), opts)
	if err != nil {
		abort(c, http.StatusBadGateway, err)
		return
	}
	if entries == nil {
		entries = []registry.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}
