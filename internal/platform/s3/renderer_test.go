package s3

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhart/mediakit-api/internal/domain"
	"github.com/solhart/mediakit-api/internal/resilience"
)

type stubCopyAPI struct {
	copyErr error
	input   *s3.CopyObjectInput
}

func (s *stubCopyAPI) CopyObjectWithContext(
	_ aws.Context, input *s3.CopyObjectInput, _ ...request.Option,
) (*s3.CopyObjectOutput, error) {
	s.input = input
	if s.copyErr != nil {
		return nil, s.copyErr
	}
	return &s3.CopyObjectOutput{}, nil
}

func rendererFixture(t *testing.T, copyErr error) (*Renderer, *stubCopyAPI, *domain.Asset, *domain.Asset) {
	t.Helper()

	source, err := domain.NewAsset("originals/cat.jpg", "image/jpeg", "cat", 2048)
	require.NoError(t, err)
	target, err := domain.NewDerivedAsset(source, domain.AssetKindThumbnail, "renditions/thumbnail/x", "image/jpeg")
	require.NoError(t, err)

	stub := &stubCopyAPI{copyErr: copyErr}
	return &Renderer{svc: stub, bucket: "media-assets", logger: slog.Default()}, stub, source, target
}

func TestRendererWritesRendition(t *testing.T) {
	t.Parallel()

	r, stub, source, target := rendererFixture(t, nil)
	err := r.Render(context.Background(), source, target)
	require.NoError(t, err)

	require.NotNil(t, stub.input)
	assert.Equal(t, "media-assets/originals/cat.jpg", aws.StringValue(stub.input.CopySource))
	assert.Equal(t, target.StorageKey, aws.StringValue(stub.input.Key))
	assert.Equal(t, "image/jpeg", aws.StringValue(stub.input.ContentType))
}

func TestRendererClassifiesMissingSource(t *testing.T) {
	t.Parallel()

	r, _, source, target := rendererFixture(t,
		awserr.New(s3.ErrCodeNoSuchKey, "the specified key does not exist", nil))
	err := r.Render(context.Background(), source, target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrPermanent))
}

func TestRendererClassifiesConnectivityFailure(t *testing.T) {
	t.Parallel()

	r, _, source, target := rendererFixture(t,
		awserr.New(request.ErrCodeRequestError, "connection refused", nil))
	err := r.Render(context.Background(), source, target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrTransient))
}
