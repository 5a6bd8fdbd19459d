package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"realestate-tokenizer/internal/ledger"
)

// DefaultPageSize is the number of topic messages fetched per request.
const DefaultPageSize = 100

// ErrNotPublished is returned when a token has no registry entry.
var ErrNotPublished = errors.New("token not published")

// Entry is a registry record read back from the topic log.
type Entry struct {
	SequenceNumber     int64     `json:"sequenceNumber"`
	ConsensusTimestamp time.Time `json:"consensusTimestamp"`
	TokenID            string    `json:"tokenId"`
	MetadataCID        string    `json:"metadataCID"`
	Timestamp          time.Time `json:"timestamp"`
}

// ReadOpts bounds a registry read.
type ReadOpts struct {
	AfterSequence int64
	Limit         int // 0 reads to the end of the log
}

// Reader reads published listings from the registry topic.
type Reader struct {
	ledger   ledger.Client
	topicID  string
	pageSize int
}

// NewReader creates a new Reader.
func NewReader(l ledger.Client, topicID string) *Reader {
	return &Reader{ledger: l, topicID: topicID, pageSize: DefaultPageSize}
}

// Entries returns registry entries in sequence order.
// Messages of other types and malformed payloads are skipped.
func (r *Reader) Entries(ctx context.Context, opts ReadOpts) ([]Entry, error) {
	var entries []Entry
	after := opts.AfterSequence

	for {
		msgs, err := r.ledger.GetTopicMessages(ctx, r.topicID, &ledger.TopicMessagesOpts{
			AfterSequence: after,
			Limit:         r.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("read topic %s after %d: %w", r.topicID, after, err)
		}

		for _, m := range msgs {
			after = m.SequenceNumber
			var am AssetMessage
			if err := json.Unmarshal(m.Message, &am); err != nil || am.Type != TypeRealEstateAsset {
				continue
			}
			entries = append(entries, Entry{
				SequenceNumber:     m.SequenceNumber,
				ConsensusTimestamp: m.ConsensusTimestamp,
				TokenID:            am.TokenID,
				MetadataCID:        am.MetadataCID,
				Timestamp:          am.Timestamp,
			})
			if opts.Limit > 0 && len(entries) == opts.Limit {
				return entries, nil
			}
		}

		if len(msgs) < r.pageSize {
			return entries, nil
		}
	}
}

// Find returns the first registry entry for tokenID.
func (r *Reader) Find(ctx context.Context, tokenID string) (*Entry, error) {
	entries, err := r.Entries(ctx, ReadOpts{})
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].TokenID == tokenID {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotPublished, tokenID)
}

// WaitFor polls Find until the entry appears, ctx is done or attempts run out.
func (r *Reader) WaitFor(ctx context.Context, tokenID string, attempts int, interval time.Duration) (*Entry, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}
		entry, err := r.Find(ctx, tokenID)
		if err == nil {
			return entry, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotPublished) {
			return nil, err
		}
	}
	return nil, lastErr
}
