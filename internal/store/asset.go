package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/domain"
)

// ListAssetsParams narrows and pages an asset listing.
type ListAssetsParams struct {
	// Kind filters by asset kind when non-empty.
	Kind domain.AssetKind

	// ParentID filters to renditions of one original when non-nil.
	ParentID *uuid.UUID

	// Limit caps the page size; implementations apply a default when zero.
	Limit int

	// Offset skips rows for paging.
	Offset int
}

// AssetStore defines the interface for asset metadata persistence.
type AssetStore interface {
	// CreateAsset persists a new asset. Returns ErrStorageKeyExists when
	// the storage key is already taken and ErrInvalidEntity when the
	// asset fails validation.
	CreateAsset(ctx context.Context, asset *domain.Asset) error

	// GetAsset retrieves an asset by ID. Returns ErrAssetNotFound when
	// no asset exists with the given ID.
	GetAsset(ctx context.Context, id uuid.UUID) (*domain.Asset, error)

	// ListAssets returns assets matching params, newest first.
	ListAssets(ctx context.Context, params ListAssetsParams) ([]*domain.Asset, error)

	// UpdateAssetStatus transitions an asset's status. Returns
	// ErrAssetNotFound when no asset exists with the given ID.
	UpdateAssetStatus(ctx context.Context, id uuid.UUID, status domain.AssetStatus) error
}
