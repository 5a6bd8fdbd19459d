package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hasher computes file digests for integrity anchoring.
type SHA256Hasher struct{}

// Hash returns the hex-encoded SHA256 digest of data (64 characters).
// Empty input has a well-defined digest.
func (SHA256Hasher) Hash(data []byte) string {
	return ComputeFileHash(data)
}

// ComputeFileHash computes the hex-encoded SHA256 digest of data.
func ComputeFileHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
