package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/events"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/store"
	"github.com/solhart/mediakit-api/internal/task"
)

// JobTypeDeriveRendition is the queue job type for derived-asset generation.
const JobTypeDeriveRendition = "derive_rendition"

// DeriveJobPayload is the JSON payload carried by derive jobs.
type DeriveJobPayload struct {
	AssetID uuid.UUID        `json:"asset_id"`
	Kind    domain.AssetKind `json:"kind"`
}

// renditionContentTypes maps each derivable kind to the content type the
// renderer produces for it.
var renditionContentTypes = map[domain.AssetKind]string{
	domain.AssetKindThumbnail: "image/jpeg",
	domain.AssetKindPreview:   "image/webp",
}

// Renderer produces the bytes of a derived rendition and writes them to
// the target asset's storage key. Implementations do the actual media
// work (decode, scale, encode, upload).
type Renderer interface {
	Render(ctx context.Context, source *domain.Asset, target *domain.Asset) error
}

// DeriveHandler executes derive jobs pulled off the task queue. Rendering
// runs through the renderer breaker and a bounded retry so transient
// pipeline failures are absorbed inside a single job attempt.
type DeriveHandler struct {
	store    store.AssetStore
	renderer Renderer
	breaker  *resilience.Breaker
	backoff  resilience.BackoffSpec
	emitter  events.Emitter
	logger   *slog.Logger
}

// NewDeriveHandler creates a DeriveHandler.
func NewDeriveHandler(
	assetStore store.AssetStore,
	renderer Renderer,
	breaker *resilience.Breaker,
	backoff resilience.BackoffSpec,
	emitter events.Emitter,
	log *slog.Logger,
) *DeriveHandler {
	return &DeriveHandler{
		store:    assetStore,
		renderer: renderer,
		breaker:  breaker,
		backoff:  backoff,
		emitter:  emitter,
		logger:   log.With("handler", JobTypeDeriveRendition),
	}
}

// Handle processes one derive job: it records a derived asset row in the
// processing state, renders the rendition, and flips the row to ready.
// A render failure marks the row failed and fails the job.
func (h *DeriveHandler) Handle(ctx context.Context, job task.Job) error {
	var payload DeriveJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid derive payload for job %s: %w", job.ID, err)
	}

	log := h.logger.With(
		"job_id", job.ID,
		"asset_id", payload.AssetID,
		"kind", payload.Kind)

	source, err := h.store.GetAsset(ctx, payload.AssetID)
	if err != nil {
		return fmt.Errorf("failed to load source asset: %w", err)
	}
	if source.Kind != domain.AssetKindOriginal {
		return fmt.Errorf("%w: asset %s is %s", ErrNotOriginal, source.ID, source.Kind)
	}

	contentType, ok := renditionContentTypes[payload.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrKindNotDerivable, payload.Kind)
	}

	target, err := domain.NewDerivedAsset(source, payload.Kind, renditionKey(source, payload.Kind), contentType)
	if err != nil {
		return fmt.Errorf("failed to build derived asset: %w", err)
	}
	if err := h.store.CreateAsset(ctx, target); err != nil {
		return fmt.Errorf("failed to record derived asset: %w", err)
	}

	err = resilience.Retry(ctx, h.backoff, resilience.RetryTransient, func(ctx context.Context) error {
		return h.breaker.Call(ctx, func(ctx context.Context) error {
			return h.renderer.Render(ctx, source, target)
		})
	})
	if err != nil {
		log.Error("rendering failed", "error", err)
		if markErr := h.store.UpdateAssetStatus(ctx, target.ID, domain.AssetStatusFailed); markErr != nil {
			log.Error("failed to mark derived asset failed", "error", markErr)
		}
		h.emit(ctx, log, events.EventRenditionFailed, target)
		return fmt.Errorf("failed to render %s for asset %s: %w", payload.Kind, source.ID, err)
	}

	if err := h.store.UpdateAssetStatus(ctx, target.ID, domain.AssetStatusReady); err != nil {
		return fmt.Errorf("failed to mark derived asset ready: %w", err)
	}
	h.emit(ctx, log, events.EventRenditionReady, target)

	log.Info("derived asset ready", "derived_id", target.ID)
	return nil
}

func (h *DeriveHandler) emit(ctx context.Context, log *slog.Logger, eventType events.EventType, asset *domain.Asset) {
	if err := h.emitter.Emit(ctx, events.NewAssetEvent(eventType, asset)); err != nil {
		log.Warn("failed to emit asset event", "event_type", eventType, "error", err)
	}
}

// renditionKey places renditions next to their original, namespaced by kind.
func renditionKey(source *domain.Asset, kind domain.AssetKind) string {
	return fmt.Sprintf("renditions/%s/%s", kind, source.ID)
}
