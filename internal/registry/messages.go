package registry

import (
	"time"

	"realestate-tokenizer/internal/domain"
)

// Message types carried on the topic logs.
const (
	TypeRealEstateAsset = "RealEstateAsset"
	TypeDocumentHash    = "DocumentHash"
)

// AssetMessage announces a published listing on the registry topic.
type AssetMessage struct {
	Type        string    `json:"type"`
	TokenID     string    `json:"tokenId"`
	MetadataCID string    `json:"metadataCID"`
	Timestamp   time.Time `json:"timestamp"`
}

// DocumentHashMessage anchors the digest of one listing file.
type DocumentHashMessage struct {
	Type      string          `json:"type"`
	FileHash  string          `json:"fileHash"`
	FileType  string          `json:"fileType"`
	Role      domain.FileRole `json:"role,omitempty"`
	TokenID   string          `json:"tokenId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Document identifies a file digest to anchor.
type Document struct {
	FileHash string
	FileType string // MIME type
	Role     domain.FileRole
	TokenID  string
}
