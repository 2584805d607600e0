package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/platform/logger"
	"github.com/solhart/mediakit-api/internal/store"
)

// defaultListLimit is applied when a listing request does not set one.
const defaultListLimit = 50

// PostgresAssetStore implements the store.AssetStore interface using
// PostgreSQL. Each operation acquires a connection from the pool and
// returns it when the query completes.
type PostgresAssetStore struct {
	pool *ConnPool
}

// NewPostgresAssetStore creates a new PostgresAssetStore backed by the
// given connection pool.
func NewPostgresAssetStore(pool *ConnPool) *PostgresAssetStore {
	return &PostgresAssetStore{pool: pool}
}

// withConn runs fn with a pooled connection. The connection is released
// as invalid when fn fails with a connection-level error so the pool
// replaces it instead of recycling a broken transport.
func (s *PostgresAssetStore) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	res, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire database connection: %w", err)
	}

	err = fn(res.Conn())
	s.pool.Release(res, !res.Conn().IsClosed())
	return err
}

// CreateAsset persists a new asset to the database.
func (s *PostgresAssetStore) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	log := logger.FromContext(ctx)

	if err := asset.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO assets (id, storage_key, content_type, size_bytes, title, kind, parent_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return s.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, query,
			asset.ID,
			asset.StorageKey,
			asset.ContentType,
			asset.SizeBytes,
			asset.Title,
			asset.Kind,
			asset.ParentID,
			asset.Status,
			asset.CreatedAt,
			asset.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				log.Warn("storage key already taken",
					"asset_id", asset.ID,
					"storage_key", asset.StorageKey)
				return fmt.Errorf("%w: %v", store.ErrStorageKeyExists, err)
			}
			if IsForeignKeyViolation(err) {
				log.Warn("parent asset no longer exists",
					"asset_id", asset.ID,
					"parent_id", asset.ParentID)
				return fmt.Errorf("%w: parent asset: %v", store.ErrNotFound, err)
			}
			log.Error("failed to save asset",
				"asset_id", asset.ID,
				"error", err)
			return MapError(fmt.Errorf("failed to save asset: %w", err))
		}
		return nil
	})
}

// GetAsset retrieves an asset by its ID.
func (s *PostgresAssetStore) GetAsset(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, storage_key, content_type, size_bytes, title, kind, parent_id, status, created_at, updated_at
		FROM assets
		WHERE id = $1
	`

	var asset domain.Asset
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, id).Scan(
			&asset.ID,
			&asset.StorageKey,
			&asset.ContentType,
			&asset.SizeBytes,
			&asset.Title,
			&asset.Kind,
			&asset.ParentID,
			&asset.Status,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", store.ErrAssetNotFound, err)
		}
		log.Error("failed to get asset",
			"asset_id", id,
			"error", err)
		return nil, MapError(fmt.Errorf("failed to get asset: %w", err))
	}

	return &asset, nil
}

// ListAssets returns assets matching params, newest first.
func (s *PostgresAssetStore) ListAssets(ctx context.Context, params store.ListAssetsParams) ([]*domain.Asset, error) {
	log := logger.FromContext(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, storage_key, content_type, size_bytes, title, kind, parent_id, status, created_at, updated_at
		FROM assets
		WHERE ($1 = '' OR kind = $1)
		  AND ($2::uuid IS NULL OR parent_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	var assets []*domain.Asset
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, string(params.Kind), params.ParentID, limit, params.Offset)
		if err != nil {
			return fmt.Errorf("failed to query assets: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var asset domain.Asset
			if err := rows.Scan(
				&asset.ID,
				&asset.StorageKey,
				&asset.ContentType,
				&asset.SizeBytes,
				&asset.Title,
				&asset.Kind,
				&asset.ParentID,
				&asset.Status,
				&asset.CreatedAt,
				&asset.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to scan asset row: %w", err)
			}
			assets = append(assets, &asset)
		}
		return rows.Err()
	})
	if err != nil {
		log.Error("failed to list assets", "error", err)
		return nil, MapError(err)
	}

	return assets, nil
}

// UpdateAssetStatus transitions an asset's status.
func (s *PostgresAssetStore) UpdateAssetStatus(ctx context.Context, id uuid.UUID, status domain.AssetStatus) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE assets
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	return s.withConn(ctx, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, status, time.Now().UTC(), id)
		if err != nil {
			log.Error("failed to update asset status",
				"asset_id", id,
				"status", status,
				"error", err)
			return MapError(fmt.Errorf("failed to update asset status: %w", err))
		}
		return CheckRowsAffected(tag, "asset")
	})
}
