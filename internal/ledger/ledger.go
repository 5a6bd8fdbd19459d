package ledger

import (
	"context"
	"time"
)

// Client defines the ledger JSON-RPC interface used by the submission pipeline.
type Client interface {
	// GetAccountInfo retrieves an account by ID. Returns nil if not found.
	GetAccountInfo(ctx context.Context, accountID string) (*AccountInfo, error)

	// CreateToken submits a fungible token creation transaction.
	CreateToken(ctx context.Context, req *CreateTokenRequest) (*TokenReceipt, error)

	// SubmitMessage appends a message to a topic log.
	SubmitMessage(ctx context.Context, topicID string, message []byte) (*MessageReceipt, error)

	// GetTopicMessages reads messages from a topic log in sequence order.
	GetTopicMessages(ctx context.Context, topicID string, opts *TopicMessagesOpts) ([]TopicMessage, error)
}

// Transaction status values.
const (
	StatusSuccess = "SUCCESS"
)

// Supply type values as the ledger names them.
const (
	SupplyFinite   = "FINITE"
	SupplyInfinite = "INFINITE"
)

// AccountInfo is an account and its authorization key.
type AccountInfo struct {
	AccountID string `json:"accountId"`
	Key       string `json:"key"` // base58 ed25519 public key
	Balance   int64  `json:"balance"`
	Deleted   bool   `json:"deleted"`
}

// CreateTokenRequest holds fungible token creation parameters.
type CreateTokenRequest struct {
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Decimals          int    `json:"decimals"`
	InitialSupply     int64  `json:"initialSupply"`
	MaxSupply         int64  `json:"maxSupply,omitempty"` // 0 for infinite supply
	SupplyType        string `json:"supplyType"`
	TreasuryAccountID string `json:"treasuryAccountId"`
	AdminKey          string `json:"adminKey"`
	SupplyKey         string `json:"supplyKey"`
	KYCKey            string `json:"kycKey,omitempty"`
	FreezeKey         string `json:"freezeKey,omitempty"`
	Memo              string `json:"memo,omitempty"`
}

// TokenReceipt is the result of a token creation transaction.
type TokenReceipt struct {
	TokenID       string
	Status        string
	TransactionID string
}

// MessageReceipt is the result of a topic message submission.
type MessageReceipt struct {
	TopicID            string
	Status             string
	SequenceNumber     int64
	ConsensusTimestamp time.Time
}

// TopicMessage is one entry of a topic log.
type TopicMessage struct {
	TopicID            string
	SequenceNumber     int64
	ConsensusTimestamp time.Time
	Message            []byte
}

// TopicMessagesOpts defines optional pagination parameters for GetTopicMessages.
type TopicMessagesOpts struct {
	AfterSequence int64 // Return messages with a greater sequence number
	Limit         int   // Maximum number of messages to return
}
