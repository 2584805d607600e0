package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/cache"
	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/events"
	"github.com/solhart/mediakit-api/internal/platform/logger"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/store"
	"github.com/solhart/mediakit-api/internal/task"
)

// URLSigner abstracts the object store operations the service needs:
// existence probes at ingest time and presigned GET URLs at read time.
type URLSigner interface {
	ObjectExists(ctx context.Context, key string) error
	SignedGetURL(key string) (string, error)
	Lifetime() time.Duration
}

// CreateAssetParams carries the fields needed to register an uploaded asset.
type CreateAssetParams struct {
	StorageKey  string
	ContentType string
	Title       string
	SizeBytes   int64
}

// AssetWithURL pairs asset metadata with a presigned download URL.
type AssetWithURL struct {
	Asset       *domain.Asset `json:"asset"`
	DownloadURL string        `json:"download_url"`
}

// AssetService provides operations for registering, retrieving, and
// deriving media assets.
type AssetService struct {
	store   store.AssetStore
	signer  URLSigner
	queue   *task.Queue
	breaker *resilience.Breaker
	backoff resilience.BackoffSpec
	emitter events.Emitter

	// urlCache deduplicates presign work; its TTL is a fraction of the
	// signed URL lifetime so a cached URL is never served after the
	// store would reject it.
	urlCache *cache.Cache[string]
	cacheTTL time.Duration

	logger *slog.Logger
}

// NewAssetService creates a new AssetService. The breaker guards object
// store probes; cacheFraction scales the signed-URL lifetime down to the
// cache TTL.
func NewAssetService(
	assetStore store.AssetStore,
	signer URLSigner,
	queue *task.Queue,
	breaker *resilience.Breaker,
	backoff resilience.BackoffSpec,
	emitter events.Emitter,
	urlCache *cache.Cache[string],
	cacheFraction float64,
	log *slog.Logger,
) (*AssetService, error) {
	if assetStore == nil {
		return nil, errors.New("asset store is required")
	}
	if signer == nil {
		return nil, errors.New("URL signer is required")
	}
	if queue == nil {
		return nil, errors.New("task queue is required")
	}
	if breaker == nil {
		return nil, errors.New("breaker is required")
	}
	if emitter == nil {
		return nil, errors.New("event emitter is required")
	}
	if urlCache == nil {
		return nil, errors.New("URL cache is required")
	}
	if cacheFraction <= 0 || cacheFraction > 1 {
		return nil, fmt.Errorf("cache fraction %v out of range (0, 1]", cacheFraction)
	}

	return &AssetService{
		store:    assetStore,
		signer:   signer,
		queue:    queue,
		breaker:  breaker,
		backoff:  backoff,
		emitter:  emitter,
		urlCache: urlCache,
		cacheTTL: time.Duration(cacheFraction * float64(signer.Lifetime())),
		logger:   log,
	}, nil
}

// CreateAsset registers an uploaded object as an asset. The object must
// already exist in the store; the existence probe runs through the
// breaker and a bounded retry so a blip in store connectivity does not
// fail the request.
func (s *AssetService) CreateAsset(ctx context.Context, params CreateAssetParams) (*domain.Asset, error) {
	log := logger.FromContext(ctx)

	err := resilience.Retry(ctx, s.backoff, resilience.RetryTransient, func(ctx context.Context) error {
		return s.breaker.Call(ctx, func(ctx context.Context) error {
			return s.signer.ObjectExists(ctx, params.StorageKey)
		})
	})
	if err != nil {
		log.Warn("object existence check failed",
			"storage_key", params.StorageKey,
			"error", err)
		return nil, NewAssetServiceError("create", "object not available in store", err)
	}

	asset, err := domain.NewAsset(params.StorageKey, params.ContentType, params.Title, params.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}

	if err := s.emitter.Emit(ctx, events.NewAssetEvent(events.EventAssetCreated, asset)); err != nil {
		log.Warn("failed to emit asset created event", "asset_id", asset.ID, "error", err)
	}

	log.Info("asset registered",
		"asset_id", asset.ID,
		"storage_key", asset.StorageKey,
		"content_type", asset.ContentType)
	return asset, nil
}

// GetAsset retrieves an asset and a presigned download URL for it. URLs
// are served from the TTL cache; concurrent requests for the same key
// trigger a single presign.
func (s *AssetService) GetAsset(ctx context.Context, id uuid.UUID) (*AssetWithURL, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.urlCache.GetOrCompute(ctx, asset.StorageKey, s.cacheTTL, func(ctx context.Context) (string, error) {
		return s.signer.SignedGetURL(asset.StorageKey)
	})
	if err != nil {
		return nil, NewAssetServiceError("get", "failed to sign download URL", err)
	}

	return &AssetWithURL{Asset: asset, DownloadURL: url}, nil
}

// ListAssets returns assets matching params, newest first.
func (s *AssetService) ListAssets(ctx context.Context, params store.ListAssetsParams) ([]*domain.Asset, error) {
	return s.store.ListAssets(ctx, params)
}

// EnqueueDerive submits a derived-asset generation job for the given
// original. Returns the job ID, or task.ErrQueueFull when the queue is
// at capacity.
func (s *AssetService) EnqueueDerive(ctx context.Context, assetID uuid.UUID, kind domain.AssetKind) (uuid.UUID, error) {
	log := logger.FromContext(ctx)

	if kind != domain.AssetKindThumbnail && kind != domain.AssetKindPreview {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrKindNotDerivable, kind)
	}

	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return uuid.Nil, err
	}
	if asset.Kind != domain.AssetKindOriginal {
		return uuid.Nil, fmt.Errorf("%w: asset %s is %s", ErrNotOriginal, asset.ID, asset.Kind)
	}

	payload, err := json.Marshal(DeriveJobPayload{AssetID: assetID, Kind: kind})
	if err != nil {
		return uuid.Nil, NewAssetServiceError("derive", "failed to encode job payload", err)
	}

	jobID, err := s.queue.Enqueue(JobTypeDeriveRendition, payload)
	if err != nil {
		return uuid.Nil, err
	}

	log.Info("derive job enqueued",
		"job_id", jobID,
		"asset_id", assetID,
		"kind", kind)
	return jobID, nil
}

// JobStatus returns a snapshot of the given job.
func (s *AssetService) JobStatus(id uuid.UUID) (task.Job, error) {
	return s.queue.Status(id)
}

// RetryJob re-enqueues a failed job as a fresh attempt and returns the
// new job's ID.
func (s *AssetService) RetryJob(id uuid.UUID) (uuid.UUID, error) {
	return s.queue.Retry(id)
}
