// Package contentstore uploads files and JSON documents to content-addressed
// storage and returns their CIDs.
package contentstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
)

// Store uploads content and returns its content identifier.
// A zero-byte upload is a valid success.
type Store interface {
	UploadFile(ctx context.Context, name string, data []byte) (string, error)
	UploadJSON(ctx context.Context, v any) (string, error)
}

// ErrInvalidCID is returned when a backend responds with something that is
// not a CID.
var ErrInvalidCID = errors.New("invalid cid")

// checkCID parses s and returns its canonical string form.
func checkCID(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidCID, s, err)
	}
	return c.String(), nil
}
