package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// DefaultIPFSTimeout bounds a single add request.
const DefaultIPFSTimeout = 60 * time.Second

// IPFSStore uploads content to an IPFS node HTTP API and pins it.
type IPFSStore struct {
	sh *shell.Shell
}

// NewIPFSStore creates a store for the node API at url (e.g. "localhost:5001").
func NewIPFSStore(url string, timeout time.Duration) *IPFSStore {
	if timeout <= 0 {
		timeout = DefaultIPFSTimeout
	}
	sh := shell.NewShell(url)
	sh.SetTimeout(timeout)
	return &IPFSStore{sh: sh}
}

// UploadFile adds data as a single pinned file.
func (s *IPFSStore) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	hash, err := s.add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("ipfs add %s: %w", name, err)
	}
	return hash, nil
}

// UploadJSON marshals v and adds it as a pinned file.
func (s *IPFSStore) UploadJSON(ctx context.Context, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	hash, err := s.add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("ipfs add json: %w", err)
	}
	return hash, nil
}

// add runs the node request, returning early when ctx is done.
// The shell API has no context parameter; its own timeout bounds the request.
func (s *IPFSStore) add(ctx context.Context, data []byte) (string, error) {
	type result struct {
		hash string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		hash, err := s.sh.Add(bytes.NewReader(data), shell.Pin(true), shell.CidVersion(1))
		ch <- result{hash, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		return checkCID(r.hash)
	}
}
