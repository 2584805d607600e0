package s3

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/solhart/mediakit-api/internal/config"
	"github.com/solhart/mediakit-api/internal/domain"
)

// copyAPI is the subset of the S3 client the renderer uses.
type copyAPI interface {
	CopyObjectWithContext(ctx aws.Context, input *s3.CopyObjectInput, opts ...request.Option) (*s3.CopyObjectOutput, error)
}

// Renderer writes derived renditions into the object store. The media
// transform itself runs in a separate pipeline that watches rendition
// keys; this renderer establishes the rendition object by server-side
// copying the source and stamping the target content type.
type Renderer struct {
	svc    copyAPI
	bucket string
	logger *slog.Logger
}

// NewRenderer creates a Renderer from storage configuration.
func NewRenderer(cfg config.StorageConfig, logger *slog.Logger) (*Renderer, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store session: %w", err)
	}

	return &Renderer{
		svc:    s3.New(sess),
		bucket: cfg.Bucket,
		logger: logger.With("component", "s3_renderer"),
	}, nil
}

// Render copies the source object to the target's storage key with the
// target's content type. Failures are classified for the retry executor.
func (r *Renderer) Render(ctx context.Context, source, target *domain.Asset) error {
	_, err := r.svc.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(r.bucket),
		CopySource:        aws.String(r.bucket + "/" + source.StorageKey),
		Key:               aws.String(target.StorageKey),
		ContentType:       aws.String(target.ContentType),
		MetadataDirective: aws.String(s3.MetadataDirectiveReplace),
	})
	if err != nil {
		return classifyStoreError(source.StorageKey, err)
	}

	r.logger.Debug("rendition object written",
		"source_key", source.StorageKey,
		"target_key", target.StorageKey)
	return nil
}
