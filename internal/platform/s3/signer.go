// Package s3 generates presigned download URLs for asset blobs stored in
// an S3-compatible object store. Only read-side operations are needed:
// clients upload through presigned PUT URLs minted elsewhere, and the
// service hands out time-limited GET URLs.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/solhart/mediakit-api/internal/config"
	"github.com/solhart/mediakit-api/internal/resilience"
)

// objectAPI is the subset of the S3 client the signer uses. *s3.S3
// satisfies it; tests substitute a stub.
type objectAPI interface {
	HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
	GetObjectRequest(input *s3.GetObjectInput) (*request.Request, *s3.GetObjectOutput)
}

// Signer mints presigned GET URLs for objects in one bucket.
type Signer struct {
	svc      objectAPI
	bucket   string
	lifetime time.Duration
	logger   *slog.Logger
}

// NewSigner creates a Signer from storage configuration. A non-empty
// endpoint switches the client to path-style addressing for
// S3-compatible stores like MinIO.
func NewSigner(cfg config.StorageConfig, logger *slog.Logger) (*Signer, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store session: %w", err)
	}

	return &Signer{
		svc:      s3.New(sess),
		bucket:   cfg.Bucket,
		lifetime: time.Duration(cfg.SignedURLLifetimeSeconds) * time.Second,
		logger:   logger.With("component", "s3_signer"),
	}, nil
}

// Lifetime returns the expiry requested for presigned URLs.
func (s *Signer) Lifetime() time.Duration {
	return s.lifetime
}

// ObjectExists probes the object store for the given key. Errors are
// classified so callers can retry connectivity failures but not missing
// objects.
func (s *Signer) ObjectExists(ctx context.Context, key string) error {
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyStoreError(key, err)
	}
	return nil
}

// SignedGetURL returns a presigned GET URL for the given key, valid for
// the configured lifetime. Presigning is a local signature computation;
// it does not contact the store.
func (s *Signer) SignedGetURL(key string) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(s.lifetime)
	if err != nil {
		s.logger.Error("failed to presign object URL",
			"storage_key", key,
			"error", err)
		return "", fmt.Errorf("failed to presign URL for %q: %w", key, err)
	}
	return url, nil
}

// classifyStoreError maps object-store failures onto the retryability
// taxonomy. Missing objects are permanent; connectivity and server-side
// failures are transient.
func classifyStoreError(key string, err error) error {
	if awsErr, ok := err.(awserr.Error); ok {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return resilience.Permanent(fmt.Errorf("object %q not found: %w", key, err))
		case request.ErrCodeRequestError, request.ErrCodeSerialization:
			return resilience.Transient(fmt.Errorf("object store unreachable: %w", err))
		}
		if reqErr, ok := awsErr.(awserr.RequestFailure); ok {
			if reqErr.StatusCode() >= http.StatusInternalServerError ||
				reqErr.StatusCode() == http.StatusTooManyRequests {
				return resilience.Transient(fmt.Errorf("object store error for %q: %w", key, err))
			}
		}
	}
	return fmt.Errorf("failed to check object %q: %w", key, err)
}
