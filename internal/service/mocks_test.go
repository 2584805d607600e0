package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/events"
	"github.com/solhart/mediakit-api/internal/store"
)

// mockAssetStore is an in-memory AssetStore for service tests.
type mockAssetStore struct {
	mu     sync.Mutex
	assets map[uuid.UUID]*domain.Asset

	createErr error
	updateErr error
}

func newMockAssetStore() *mockAssetStore {
	return &mockAssetStore{assets: make(map[uuid.UUID]*domain.Asset)}
}

func (m *mockAssetStore) CreateAsset(_ context.Context, asset *domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *asset
	m.assets[asset.ID] = &cp
	return nil
}

func (m *mockAssetStore) GetAsset(_ context.Context, id uuid.UUID) (*domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	asset, ok := m.assets[id]
	if !ok {
		return nil, store.ErrAssetNotFound
	}
	cp := *asset
	return &cp, nil
}

func (m *mockAssetStore) ListAssets(_ context.Context, params store.ListAssetsParams) ([]*domain.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Asset
	for _, asset := range m.assets {
		if params.Kind != "" && asset.Kind != params.Kind {
			continue
		}
		cp := *asset
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockAssetStore) UpdateAssetStatus(_ context.Context, id uuid.UUID, status domain.AssetStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	asset, ok := m.assets[id]
	if !ok {
		return store.ErrAssetNotFound
	}
	asset.Status = status
	return nil
}

// statusOf reads an asset's current status directly, bypassing the store API.
func (m *mockAssetStore) statusOf(id uuid.UUID) domain.AssetStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if asset, ok := m.assets[id]; ok {
		return asset.Status
	}
	return ""
}

// byKind returns the stored assets of one kind.
func (m *mockAssetStore) byKind(kind domain.AssetKind) []*domain.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Asset
	for _, asset := range m.assets {
		if asset.Kind == kind {
			cp := *asset
			out = append(out, &cp)
		}
	}
	return out
}

// mockSigner is a URLSigner with scriptable existence-probe errors and a
// call counter for cache assertions.
type mockSigner struct {
	mu         sync.Mutex
	existsErrs []error
	probeCalls int
	signCalls  int
}

func (m *mockSigner) ObjectExists(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeCalls++
	if len(m.existsErrs) == 0 {
		return nil
	}
	err := m.existsErrs[0]
	m.existsErrs = m.existsErrs[1:]
	return err
}

func (m *mockSigner) SignedGetURL(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signCalls++
	return fmt.Sprintf("https://store.example/%s?sig=%d", key, m.signCalls), nil
}

func (m *mockSigner) Lifetime() time.Duration {
	return 15 * time.Minute
}

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []*events.AssetEvent
}

func (r *eventRecorder) Emit(_ context.Context, event *events.AssetEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// ofType returns the recorded events of one type.
func (r *eventRecorder) ofType(eventType events.EventType) []*events.AssetEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.AssetEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// mockRenderer delegates to a function so tests can script failures.
type mockRenderer struct {
	mu     sync.Mutex
	calls  int
	render func(call int, source, target *domain.Asset) error

	lastTarget *domain.Asset
}

func (m *mockRenderer) Render(_ context.Context, source, target *domain.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTarget = target
	if m.render == nil {
		return nil
	}
	return m.render(m.calls, source, target)
}
