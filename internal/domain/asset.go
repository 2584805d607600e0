package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AssetStatus represents the processing state of a media asset.
type AssetStatus string

// Possible asset status values.
const (
	AssetStatusUploaded   AssetStatus = "uploaded"
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusReady      AssetStatus = "ready"
	AssetStatusFailed     AssetStatus = "failed"
)

// AssetKind distinguishes originals from derived renditions.
type AssetKind string

const (
	AssetKindOriginal  AssetKind = "original"
	AssetKindThumbnail AssetKind = "thumbnail"
	AssetKindPreview   AssetKind = "preview"
)

// Common validation errors for Asset.
var (
	ErrEmptyAssetID        = errors.New("asset ID cannot be empty")
	ErrEmptyStorageKey     = errors.New("asset storage key cannot be empty")
	ErrEmptyContentType    = errors.New("asset content type cannot be empty")
	ErrNegativeAssetSize   = errors.New("asset size cannot be negative")
	ErrInvalidAssetStatus  = errors.New("invalid asset status")
	ErrInvalidAssetKind    = errors.New("invalid asset kind")
	ErrDerivedNeedsParent  = errors.New("derived asset requires a parent ID")
	ErrOriginalHasNoParent = errors.New("original asset cannot have a parent ID")
)

// Asset represents one stored media object: the metadata row backing a blob
// in the object store. Derived renditions (thumbnails, previews) are assets
// of their own, linked to the original through ParentID.
type Asset struct {
	ID          uuid.UUID   `json:"id"`
	StorageKey  string      `json:"storage_key"`
	ContentType string      `json:"content_type"`
	SizeBytes   int64       `json:"size_bytes"`
	Title       string      `json:"title,omitempty"`
	Kind        AssetKind   `json:"kind"`
	ParentID    *uuid.UUID  `json:"parent_id,omitempty"`
	Status      AssetStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewAsset creates an original asset in the uploaded state with a fresh ID
// and timestamps. Returns an error if validation fails.
func NewAsset(storageKey, contentType, title string, sizeBytes int64) (*Asset, error) {
	now := time.Now().UTC()
	asset := &Asset{
		ID:          uuid.New(),
		StorageKey:  storageKey,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		Title:       title,
		Kind:        AssetKindOriginal,
		Status:      AssetStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// NewDerivedAsset creates a derived rendition of parent in the processing
// state. The storage key is where the rendition will be written.
func NewDerivedAsset(parent *Asset, kind AssetKind, storageKey, contentType string) (*Asset, error) {
	now := time.Now().UTC()
	parentID := parent.ID
	asset := &Asset{
		ID:          uuid.New(),
		StorageKey:  storageKey,
		ContentType: contentType,
		Kind:        kind,
		ParentID:    &parentID,
		Status:      AssetStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}

// Validate checks if the Asset has valid data.
func (a *Asset) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAssetID
	}
	if a.StorageKey == "" {
		return ErrEmptyStorageKey
	}
	if a.ContentType == "" {
		return ErrEmptyContentType
	}
	if a.SizeBytes < 0 {
		return ErrNegativeAssetSize
	}
	if !isValidAssetStatus(a.Status) {
		return ErrInvalidAssetStatus
	}
	if !isValidAssetKind(a.Kind) {
		return ErrInvalidAssetKind
	}
	if a.Kind != AssetKindOriginal && a.ParentID == nil {
		return ErrDerivedNeedsParent
	}
	if a.Kind == AssetKindOriginal && a.ParentID != nil {
		return ErrOriginalHasNoParent
	}
	return nil
}

func isValidAssetStatus(s AssetStatus) bool {
	switch s {
	case AssetStatusUploaded, AssetStatusProcessing, AssetStatusReady, AssetStatusFailed:
		return true
	}
	return false
}

func isValidAssetKind(k AssetKind) bool {
	switch k {
	case AssetKindOriginal, AssetKindThumbnail, AssetKindPreview:
		return true
	}
	return false
}
