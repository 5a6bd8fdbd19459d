package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// MemoryStore keeps content in memory under its CIDv1 (raw codec, sha2-256).
// Thread-safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	uploads []string

	// FailOn, when set, is consulted before each upload; a non-nil error
	// fails it. name is "" for JSON uploads.
	FailOn func(name string) error
}

// NewMemoryStore creates a new in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
	}
}

// UploadFile stores data and returns its CID.
func (s *MemoryStore) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.FailOn != nil {
		if err := s.FailOn(name); err != nil {
			return "", err
		}
	}
	return s.put(name, data)
}

// UploadJSON marshals v, stores it and returns its CID.
func (s *MemoryStore) UploadJSON(ctx context.Context, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.FailOn != nil {
		if err := s.FailOn(""); err != nil {
			return "", err
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return s.put("", data)
}

// Get returns a copy of the content stored under c.
func (s *MemoryStore) Get(c string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[c]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Len returns the number of distinct objects stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Uploads returns upload names in completion order ("" for JSON).
func (s *MemoryStore) Uploads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.uploads...)
}

func (s *MemoryStore) put(name string, data []byte) (string, error) {
	c, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[c] = append([]byte(nil), data...)
	s.uploads = append(s.uploads, name)
	return c, nil
}

// ComputeCID returns the CIDv1 (raw codec, sha2-256) of data.
func ComputeCID(data []byte) (string, error) {
	hash, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, hash).String(), nil
}
