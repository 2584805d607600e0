package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/service"
	"github.com/solhart/mediakit-api/internal/task"
)

// CreateAssetRequest registers an already-uploaded object as an asset.
type CreateAssetRequest struct {
	StorageKey  string `json:"storage_key"  validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Title       string `json:"title"        validate:"max=200"`
	SizeBytes   int64  `json:"size_bytes"   validate:"gte=0"`
}

// DeriveAssetRequest asks for a derived rendition of an original asset.
type DeriveAssetRequest struct {
	Kind string `json:"kind" validate:"required,oneof=thumbnail preview"`
}

// AssetResponse is the wire form of an asset.
type AssetResponse struct {
	ID          string    `json:"id"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Title       string    `json:"title,omitempty"`
	Kind        string    `json:"kind"`
	ParentID    string    `json:"parent_id,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssetWithURLResponse pairs asset metadata with its download URL.
type AssetWithURLResponse struct {
	AssetResponse
	DownloadURL string `json:"download_url"`
}

// ListAssetsResponse is the wire form of an asset listing.
type ListAssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

// JobResponse is the wire form of a background job snapshot.
type JobResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	State      string     `json:"state"`
	Attempt    int        `json:"attempt"`
	RetryOf    string     `json:"retry_of,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// EnqueuedJobResponse acknowledges an accepted job.
type EnqueuedJobResponse struct {
	JobID string `json:"job_id"`
}

func assetToResponse(asset *domain.Asset) AssetResponse {
	resp := AssetResponse{
		ID:          asset.ID.String(),
		StorageKey:  asset.StorageKey,
		ContentType: asset.ContentType,
		SizeBytes:   asset.SizeBytes,
		Title:       asset.Title,
		Kind:        string(asset.Kind),
		Status:      string(asset.Status),
		CreatedAt:   asset.CreatedAt,
		UpdatedAt:   asset.UpdatedAt,
	}
	if asset.ParentID != nil {
		resp.ParentID = asset.ParentID.String()
	}
	return resp
}

func assetWithURLToResponse(a *service.AssetWithURL) AssetWithURLResponse {
	return AssetWithURLResponse{
		AssetResponse: assetToResponse(a.Asset),
		DownloadURL:   a.DownloadURL,
	}
}

func jobToResponse(job task.Job) JobResponse {
	resp := JobResponse{
		ID:         job.ID.String(),
		Type:       job.Type,
		State:      string(job.State),
		Attempt:    job.Attempt,
		LastError:  job.LastError,
		EnqueuedAt: job.EnqueuedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.RetryOf != uuid.Nil {
		resp.RetryOf = job.RetryOf.String()
	}
	return resp
}
