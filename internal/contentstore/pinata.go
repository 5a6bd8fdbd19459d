package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultPinataURL is the Pinata API base URL.
const DefaultPinataURL = "https://api.pinata.cloud"

// PinataStore uploads content through the Pinata pinning API.
type PinataStore struct {
	baseURL string
	jwt     string
	client  *http.Client
}

// PinataOption configures PinataStore.
type PinataOption func(*PinataStore)

// WithPinataHTTPClient sets custom http.Client.
func WithPinataHTTPClient(client *http.Client) PinataOption {
	return func(s *PinataStore) {
		s.client = client
	}
}

// WithPinataTimeout sets HTTP client timeout.
func WithPinataTimeout(d time.Duration) PinataOption {
	return func(s *PinataStore) {
		s.client.Timeout = d
	}
}

// NewPinataStore creates a Pinata store authenticated with a JWT.
func NewPinataStore(baseURL, jwt string, opts ...PinataOption) *PinataStore {
	if baseURL == "" {
		baseURL = DefaultPinataURL
	}
	s := &PinataStore{
		baseURL: baseURL,
		jwt:     jwt,
		client:  &http.Client{Timeout: DefaultIPFSTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pinResponse is the response of both pin endpoints.
type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// UploadFile pins data as a file via pinFileToIPFS.
func (s *PinataStore) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("write metadata field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	hash, err := s.post(ctx, "/pinning/pinFileToIPFS", mw.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("pinata pin file %s: %w", name, err)
	}
	return hash, nil
}

// UploadJSON pins v via pinJSONToIPFS.
func (s *PinataStore) UploadJSON(ctx context.Context, v any) (string, error) {
	payload, err := json.Marshal(map[string]any{"pinataContent": v})
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}

	hash, err := s.post(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("pinata pin json: %w", err)
	}
	return hash, nil
}

func (s *PinataStore) post(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.jwt)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var pr pinResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return checkCID(pr.IpfsHash)
}
