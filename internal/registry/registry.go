// Package registry publishes listings and document hashes to append-only
// ledger topics and reads them back.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"realestate-tokenizer/internal/domain"
	"realestate-tokenizer/internal/ledger"
)

// ErrRejected is returned when a topic submission receipt is not SUCCESS.
var ErrRejected = errors.New("topic message rejected")

// Options configures the Registry.
type Options struct {
	Ledger  ledger.Client
	TopicID string // registry topic
	Clock   func() time.Time
	Logger  *log.Logger
	Verbose bool
}

// Registry implements the registry publisher and the hash anchor over ledger topics.
type Registry struct {
	ledger  ledger.Client
	topicID string
	clock   func() time.Time
	logger  *log.Logger
	verbose bool
}

// New creates a new Registry.
func New(opts Options) *Registry {
	r := &Registry{
		ledger:  opts.Ledger,
		topicID: opts.TopicID,
		clock:   opts.Clock,
		logger:  opts.Logger,
		verbose: opts.Verbose,
	}
	if r.clock == nil {
		r.clock = func() time.Time { return time.Now().UTC() }
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Publish appends {tokenId, metadataCID, timestamp} to the registry topic.
func (r *Registry) Publish(ctx context.Context, tokenID, metadataCID string) (*domain.Receipt, error) {
	if tokenID == "" || metadataCID == "" {
		return nil, fmt.Errorf("publish: token id and metadata cid are required")
	}
	msg := AssetMessage{
		Type:        TypeRealEstateAsset,
		TokenID:     tokenID,
		MetadataCID: metadataCID,
		Timestamp:   r.clock(),
	}
	receipt, err := r.submit(ctx, r.topicID, msg)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", tokenID, err)
	}
	r.log("published %s -> %s (seq %d)", tokenID, metadataCID, receipt.SequenceNumber)
	return receipt, nil
}

// Anchor appends {fileHash, fileType, timestamp} to topicID.
func (r *Registry) Anchor(ctx context.Context, doc Document, topicID string) (*domain.Receipt, error) {
	if doc.FileHash == "" {
		return nil, fmt.Errorf("anchor: file hash is required")
	}
	msg := DocumentHashMessage{
		Type:      TypeDocumentHash,
		FileHash:  doc.FileHash,
		FileType:  doc.FileType,
		Role:      doc.Role,
		TokenID:   doc.TokenID,
		Timestamp: r.clock(),
	}
	receipt, err := r.submit(ctx, topicID, msg)
	if err != nil {
		return nil, fmt.Errorf("anchor %s: %w", doc.FileHash, err)
	}
	r.log("anchored %s %s (seq %d)", doc.Role, doc.FileHash, receipt.SequenceNumber)
	return receipt, nil
}

func (r *Registry) submit(ctx context.Context, topicID string, msg interface{}) (*domain.Receipt, error) {
	if topicID == "" {
		return nil, fmt.Errorf("topic id is not configured")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	receipt, err := r.ledger.SubmitMessage(ctx, topicID, payload)
	if err != nil {
		return nil, err
	}
	if receipt.Status != ledger.StatusSuccess {
		return nil, fmt.Errorf("%w: status %s", ErrRejected, receipt.Status)
	}

	return &domain.Receipt{
		TopicID:        topicID,
		Status:         receipt.Status,
		SequenceNumber: receipt.SequenceNumber,
		Timestamp:      receipt.ConsensusTimestamp,
	}, nil
}

func (r *Registry) log(format string, args ...interface{}) {
	if r.verbose {
		r.logger.Printf("[registry] "+format, args...)
	}
}
