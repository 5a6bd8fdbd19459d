package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"realestate-tokenizer/internal/ledger"
)

// Ledger implements ledger.Client in memory for testing.
// Fail* fields inject errors into the matching method.
type Ledger struct {
	mu sync.Mutex

	Accounts map[string]*ledger.AccountInfo
	Tokens   map[string]*ledger.CreateTokenRequest
	Topics   map[string][]ledger.TopicMessage

	FailGetAccount    error
	FailCreateToken   error
	FailSubmitMessage func(topicID string, message []byte) error

	// Calls records method names in call order.
	Calls []string

	nextToken int64
	now       func() time.Time
}

// NewLedger creates a new stub ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Accounts:  make(map[string]*ledger.AccountInfo),
		Tokens:    make(map[string]*ledger.CreateTokenRequest),
		Topics:    make(map[string][]ledger.TopicMessage),
		nextToken: 5000,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddAccount registers an account with its base58 public key.
func (l *Ledger) AddAccount(accountID, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Accounts[accountID] = &ledger.AccountInfo{AccountID: accountID, Key: key}
}

// GetAccountInfo retrieves an account from the stub store.
func (l *Ledger) GetAccountInfo(_ context.Context, accountID string) (*ledger.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "getAccountInfo")

	if l.FailGetAccount != nil {
		return nil, l.FailGetAccount
	}
	acc, ok := l.Accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

// CreateToken records the token and assigns the next token ID.
func (l *Ledger) CreateToken(_ context.Context, req *ledger.CreateTokenRequest) (*ledger.TokenReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "createToken")

	if l.FailCreateToken != nil {
		return nil, l.FailCreateToken
	}
	l.nextToken++
	tokenID := fmt.Sprintf("0.0.%d", l.nextToken)
	cp := *req
	l.Tokens[tokenID] = &cp
	return &ledger.TokenReceipt{
		TokenID:       tokenID,
		Status:        ledger.StatusSuccess,
		TransactionID: fmt.Sprintf("tx-%d", l.nextToken),
	}, nil
}

// SubmitMessage appends a message to the stub topic.
func (l *Ledger) SubmitMessage(_ context.Context, topicID string, message []byte) (*ledger.MessageReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "submitMessage")

	if l.FailSubmitMessage != nil {
		if err := l.FailSubmitMessage(topicID, message); err != nil {
			return nil, err
		}
	}
	msg := ledger.TopicMessage{
		TopicID:            topicID,
		SequenceNumber:     int64(len(l.Topics[topicID]) + 1),
		ConsensusTimestamp: l.now(),
		Message:            append([]byte(nil), message...),
	}
	l.Topics[topicID] = append(l.Topics[topicID], msg)
	return &ledger.MessageReceipt{
		TopicID:            topicID,
		Status:             ledger.StatusSuccess,
		SequenceNumber:     msg.SequenceNumber,
		ConsensusTimestamp: msg.ConsensusTimestamp,
	}, nil
}

// GetTopicMessages returns topic messages after opts.AfterSequence.
func (l *Ledger) GetTopicMessages(_ context.Context, topicID string, opts *ledger.TopicMessagesOpts) ([]ledger.TopicMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, "getTopicMessages")

	var out []ledger.TopicMessage
	for _, m := range l.Topics[topicID] {
		if opts != nil && m.SequenceNumber <= opts.AfterSequence {
			continue
		}
		out = append(out, m)
		if opts != nil && opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// Messages returns a copy of every message on topicID.
func (l *Ledger) Messages(topicID string) []ledger.TopicMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.TopicMessage(nil), l.Topics[topicID]...)
}

// CallLog returns a copy of the recorded calls.
func (l *Ledger) CallLog() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Calls...)
}
