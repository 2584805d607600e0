package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/events"
	"github.com/solhart/mediakit-api/internal/resilience"
	"github.com/solhart/mediakit-api/internal/task"
)

type deriveFixture struct {
	handler  *DeriveHandler
	store    *mockAssetStore
	renderer *mockRenderer
	recorder *eventRecorder
	source   *domain.Asset
}

func newDeriveFixture(t *testing.T) *deriveFixture {
	t.Helper()

	assetStore := newMockAssetStore()
	source, err := domain.NewAsset("originals/cat.jpg", "image/jpeg", "cat", 2048)
	require.NoError(t, err)
	require.NoError(t, assetStore.CreateAsset(context.Background(), source))

	renderer := &mockRenderer{}
	recorder := &eventRecorder{}
	handler := NewDeriveHandler(
		assetStore,
		renderer,
		resilience.NewBreaker("renderer", resilience.DefaultBreakerConfig()),
		testBackoff(),
		recorder,
		slog.Default(),
	)

	return &deriveFixture{handler: handler, store: assetStore, renderer: renderer, recorder: recorder, source: source}
}

func deriveJob(t *testing.T, assetID uuid.UUID, kind domain.AssetKind) task.Job {
	t.Helper()
	payload, err := json.Marshal(DeriveJobPayload{AssetID: assetID, Kind: kind})
	require.NoError(t, err)
	return task.Job{ID: uuid.New(), Type: JobTypeDeriveRendition, Payload: payload}
}

func TestDeriveHandlerProducesReadyRendition(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	err := f.handler.Handle(context.Background(), deriveJob(t, f.source.ID, domain.AssetKindThumbnail))
	require.NoError(t, err)

	thumbs := f.store.byKind(domain.AssetKindThumbnail)
	require.Len(t, thumbs, 1)
	assert.Equal(t, domain.AssetStatusReady, thumbs[0].Status)
	assert.Equal(t, "image/jpeg", thumbs[0].ContentType)
	assert.Equal(t, renditionKey(f.source, domain.AssetKindThumbnail), thumbs[0].StorageKey)
	require.NotNil(t, thumbs[0].ParentID)
	assert.Equal(t, f.source.ID, *thumbs[0].ParentID)

	ready := f.recorder.ofType(events.EventRenditionReady)
	require.Len(t, ready, 1)
	assert.Equal(t, thumbs[0].ID, ready[0].AssetID)
}

func TestDeriveHandlerRetriesTransientRender(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	f.renderer.render = func(call int, _, _ *domain.Asset) error {
		if call < 3 {
			return resilience.Transient(errors.New("decoder hiccup"))
		}
		return nil
	}

	err := f.handler.Handle(context.Background(), deriveJob(t, f.source.ID, domain.AssetKindPreview))
	require.NoError(t, err)
	assert.Equal(t, 3, f.renderer.calls)

	previews := f.store.byKind(domain.AssetKindPreview)
	require.Len(t, previews, 1)
	assert.Equal(t, domain.AssetStatusReady, previews[0].Status)
}

func TestDeriveHandlerMarksFailedOnPermanentError(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	f.renderer.render = func(int, *domain.Asset, *domain.Asset) error {
		return resilience.Permanent(errors.New("corrupt source"))
	}

	err := f.handler.Handle(context.Background(), deriveJob(t, f.source.ID, domain.AssetKindThumbnail))
	require.Error(t, err)
	assert.Equal(t, 1, f.renderer.calls)

	thumbs := f.store.byKind(domain.AssetKindThumbnail)
	require.Len(t, thumbs, 1)
	assert.Equal(t, domain.AssetStatusFailed, thumbs[0].Status)
	assert.Len(t, f.recorder.ofType(events.EventRenditionFailed), 1)
}

func TestDeriveHandlerRejectsBadPayload(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	err := f.handler.Handle(context.Background(), task.Job{
		ID:      uuid.New(),
		Type:    JobTypeDeriveRendition,
		Payload: []byte("{not json"),
	})
	assert.Error(t, err)
}

func TestDeriveHandlerRejectsMissingSource(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	err := f.handler.Handle(context.Background(), deriveJob(t, uuid.New(), domain.AssetKindThumbnail))
	assert.Error(t, err)
}

func TestDeriveHandlerRejectsDerivedSource(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	derived, err := domain.NewDerivedAsset(f.source, domain.AssetKindThumbnail, "renditions/thumbnail/x", "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, f.store.CreateAsset(context.Background(), derived))

	err = f.handler.Handle(context.Background(), deriveJob(t, derived.ID, domain.AssetKindPreview))
	assert.True(t, errors.Is(err, ErrNotOriginal))
}

func TestDeriveHandlerRejectsUnderivableKind(t *testing.T) {
	t.Parallel()

	f := newDeriveFixture(t)
	err := f.handler.Handle(context.Background(), deriveJob(t, f.source.ID, domain.AssetKindOriginal))
	assert.True(t, errors.Is(err, ErrKindNotDerivable))
}
