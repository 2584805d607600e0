package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/domain"
)

// EventType identifies an asset lifecycle event.
type EventType string

const (
	// EventAssetCreated fires when an uploaded object is registered as an asset.
	EventAssetCreated EventType = "asset.created"

	// EventRenditionReady fires when a derived asset finishes rendering.
	EventRenditionReady EventType = "rendition.ready"

	// EventRenditionFailed fires when rendering a derived asset fails.
	EventRenditionFailed EventType = "rendition.failed"
)

// AssetEvent describes a state change of a single asset. Events carry a
// snapshot of the asset's identifying fields so handlers never need to
// reach back into the store.
type AssetEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// Type indicates which lifecycle transition occurred.
	Type EventType `json:"type"`

	// AssetID is the asset the event is about.
	AssetID uuid.UUID `json:"asset_id"`

	// Kind is the asset's kind at the time of the event.
	Kind domain.AssetKind `json:"kind"`

	// StorageKey is the asset's object store key.
	StorageKey string `json:"storage_key"`

	// OccurredAt is the timestamp when the event was created.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAssetEvent creates an event of the given type for the given asset.
func NewAssetEvent(eventType EventType, asset *domain.Asset) *AssetEvent {
	return &AssetEvent{
		ID:         uuid.New(),
		Type:       eventType,
		AssetID:    asset.ID,
		Kind:       asset.Kind,
		StorageKey: asset.StorageKey,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler defines an interface for components that react to asset events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *AssetEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *AssetEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *AssetEvent) error {
	return f(ctx, event)
}

// Emitter defines an interface for components that publish asset events.
// Services emit events without knowing which handlers will process them.
type Emitter interface {
	// Emit publishes the given event to all registered handlers.
	Emit(ctx context.Context, event *AssetEvent) error
}
