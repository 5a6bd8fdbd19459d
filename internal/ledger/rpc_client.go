package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64

	// operator pays for and signs write transactions
	operatorID  string
	operatorKey ed25519.PrivateKey

	observe func(method string, d time.Duration, err error)
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithOperator sets the account that signs write transactions.
func WithOperator(accountID string, key ed25519.PrivateKey) ClientOption {
	return func(c *HTTPClient) {
		c.operatorID = accountID
		c.operatorKey = key
	}
}

// WithObserver registers a callback invoked after every RPC call.
func WithObserver(fn func(method string, d time.Duration, err error)) ClientOption {
	return func(c *HTTPClient) {
		c.observe = fn
	}
}

// NewHTTPClient creates a new ledger JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error, including ledger rejections.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call and reports its latency to the observer.
// Only reads are retried; a write is sent once because the ledger may have
// applied it before the failure was observed.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}, retry bool) error {
	start := time.Now()
	maxRetries := 0
	if retry {
		maxRetries = c.maxRetries
	}
	err := c.callWithRetry(ctx, method, params, result, maxRetries)
	if c.observe != nil {
		c.observe(method, time.Since(start), err)
	}
	return err
}

// callWithRetry performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) callWithRetry(ctx context.Context, method string, params []interface{}, result interface{}, maxRetries int) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	if maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// signedParams marshals a transaction body and, when an operator is set,
// appends its ed25519 signature over the marshalled body.
func (c *HTTPClient) signedParams(body interface{}) ([]interface{}, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}

	params := []interface{}{json.RawMessage(payload)}
	if c.operatorKey != nil {
		params = append(params, signature{
			Operator:  c.operatorID,
			PublicKey: EncodePublicKey(c.operatorKey.Public().(ed25519.PublicKey)),
			Signature: base58.Encode(ed25519.Sign(c.operatorKey, payload)),
		})
	}
	return params, nil
}

type signature struct {
	Operator  string `json:"operator"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// GetAccountInfo retrieves account info by account ID.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, accountID string) (*AccountInfo, error) {
	params := []interface{}{accountID}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result, true); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	return &AccountInfo{
		AccountID: result.Value.AccountID,
		Key:       result.Value.Key,
		Balance:   result.Value.Balance,
		Deleted:   result.Value.Deleted,
	}, nil
}

type getAccountInfoResult struct {
	Value *AccountInfo `json:"value"`
}

// CreateToken submits a token creation transaction and waits for its receipt.
func (c *HTTPClient) CreateToken(ctx context.Context, req *CreateTokenRequest) (*TokenReceipt, error) {
	params, err := c.signedParams(req)
	if err != nil {
		return nil, err
	}

	var result createTokenResult
	if err := c.call(ctx, "createToken", params, &result, false); err != nil {
		return nil, err
	}

	return &TokenReceipt{
		TokenID:       result.TokenID,
		Status:        result.Status,
		TransactionID: result.TransactionID,
	}, nil
}

type createTokenResult struct {
	TokenID       string `json:"tokenId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

// SubmitMessage appends a message to a topic and waits for its receipt.
func (c *HTTPClient) SubmitMessage(ctx context.Context, topicID string, message []byte) (*MessageReceipt, error) {
	params, err := c.signedParams(submitMessageBody{TopicID: topicID, Message: message})
	if err != nil {
		return nil, err
	}

	var result submitMessageResult
	if err := c.call(ctx, "submitMessage", params, &result, false); err != nil {
		return nil, err
	}

	return &MessageReceipt{
		TopicID:            topicID,
		Status:             result.Status,
		SequenceNumber:     result.SequenceNumber,
		ConsensusTimestamp: time.UnixMilli(result.ConsensusTimestamp).UTC(),
	}, nil
}

type submitMessageBody struct {
	TopicID string `json:"topicId"`
	Message []byte `json:"message"` // base64 on the wire
}

type submitMessageResult struct {
	Status             string `json:"status"`
	SequenceNumber     int64  `json:"sequenceNumber"`
	ConsensusTimestamp int64  `json:"consensusTimestamp"` // Unix milliseconds
}

// GetTopicMessages retrieves topic messages in ascending sequence order.
func (c *HTTPClient) GetTopicMessages(ctx context.Context, topicID string, opts *TopicMessagesOpts) ([]TopicMessage, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.AfterSequence > 0 {
			config["afterSequence"] = opts.AfterSequence
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{topicID}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getTopicMessageResult
	if err := c.call(ctx, "getTopicMessages", params, &result, true); err != nil {
		return nil, err
	}

	msgs := make([]TopicMessage, len(result))
	for i, r := range result {
		msgs[i] = TopicMessage{
			TopicID:            topicID,
			SequenceNumber:     r.SequenceNumber,
			ConsensusTimestamp: time.UnixMilli(r.ConsensusTimestamp).UTC(),
			Message:            r.Message,
		}
	}

	return msgs, nil
}

// getTopicMessageResult is the raw RPC response item for getTopicMessages.
type getTopicMessageResult struct {
	SequenceNumber     int64  `json:"sequenceNumber"`
	ConsensusTimestamp int64  `json:"consensusTimestamp"`
	Message            []byte `json:"message"`
}
