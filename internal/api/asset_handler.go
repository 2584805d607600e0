package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/api/shared"
	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/platform/logger"
	"github.com/solhart/mediakit-api/internal/service"
	"github.com/solhart/mediakit-api/internal/store"
	"github.com/solhart/mediakit-api/internal/task"
)

// AssetManager is the slice of the asset service the handler needs.
type AssetManager interface {
	CreateAsset(ctx context.Context, params service.CreateAssetParams) (*domain.Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*service.AssetWithURL, error)
	ListAssets(ctx context.Context, params store.ListAssetsParams) ([]*domain.Asset, error)
	EnqueueDerive(ctx context.Context, assetID uuid.UUID, kind domain.AssetKind) (uuid.UUID, error)
	JobStatus(id uuid.UUID) (task.Job, error)
	RetryJob(id uuid.UUID) (uuid.UUID, error)
}

// AssetHandler handles asset and job HTTP requests.
type AssetHandler struct {
	assets AssetManager
	logger *slog.Logger
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assets AssetManager, log *slog.Logger) *AssetHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AssetHandler")
	}
	return &AssetHandler{
		assets: assets,
		logger: log.With(slog.String("component", "asset_handler")),
	}
}

// CreateAsset handles POST /assets requests.
func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateAssetRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	asset, err := h.assets.CreateAsset(r.Context(), service.CreateAssetParams{
		StorageKey:  req.StorageKey,
		ContentType: req.ContentType,
		Title:       req.Title,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("asset created", slog.String("asset_id", asset.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, assetToResponse(asset))
}

// GetAsset handles GET /assets/{id} requests, returning metadata and a
// presigned download URL.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid asset ID")
		return
	}

	asset, err := h.assets.GetAsset(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, assetWithURLToResponse(asset))
}

// ListAssets handles GET /assets requests. Supports kind, parent_id,
// limit, and offset query parameters.
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	params := store.ListAssetsParams{
		Kind:   domain.AssetKind(r.URL.Query().Get("kind")),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		parentID, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid parent_id")
			return
		}
		params.ParentID = &parentID
	}

	assets, err := h.assets.ListAssets(r.Context(), params)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := ListAssetsResponse{Assets: make([]AssetResponse, 0, len(assets))}
	for _, asset := range assets {
		resp.Assets = append(resp.Assets, assetToResponse(asset))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// DeriveAsset handles POST /assets/{id}/derive requests, enqueuing a
// derived-asset job. Responds 202 with the job ID.
func (h *AssetHandler) DeriveAsset(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid asset ID")
		return
	}

	var req DeriveAssetRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	jobID, err := h.assets.EnqueueDerive(r.Context(), id, domain.AssetKind(req.Kind))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("derive job accepted",
		slog.String("asset_id", id.String()),
		slog.String("job_id", jobID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueuedJobResponse{JobID: jobID.String()})
}

// GetJob handles GET /jobs/{id} requests.
func (h *AssetHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.assets.JobStatus(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// RetryJob handles POST /jobs/{id}/retry requests, re-enqueuing a failed
// job as a fresh attempt.
func (h *AssetHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	newID, err := h.assets.RetryJob(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueuedJobResponse{JobID: newID.String()})
}
