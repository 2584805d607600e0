package s3

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solhart/mediakit-api/internal/resilience"
)

// testSigner builds a Signer with static credentials so presigning is a
// pure local computation.
func testSigner(t *testing.T) *Signer {
	t.Helper()

	sess, err := session.NewSession(aws.NewConfig().
		WithRegion("us-east-1").
		WithCredentials(credentials.NewStaticCredentials("test-key", "test-secret", "")))
	require.NoError(t, err)

	return &Signer{
		svc:      s3.New(sess),
		bucket:   "media-assets",
		lifetime: 15 * time.Minute,
		logger:   slog.Default(),
	}
}

func TestSignedGetURL(t *testing.T) {
	t.Parallel()

	signer := testSigner(t)

	url, err := signer.SignedGetURL("originals/cat.jpg")
	require.NoError(t, err)

	assert.Contains(t, url, "media-assets")
	assert.Contains(t, url, "originals/cat.jpg")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}

func TestSignedGetURLDiffersPerKey(t *testing.T) {
	t.Parallel()

	signer := testSigner(t)

	a, err := signer.SignedGetURL("originals/a.jpg")
	require.NoError(t, err)
	b, err := signer.SignedGetURL("originals/b.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

// stubObjectAPI satisfies objectAPI for existence-check tests.
type stubObjectAPI struct {
	headErr error
}

func (s *stubObjectAPI) HeadObjectWithContext(
	_ aws.Context, _ *s3.HeadObjectInput, _ ...request.Option,
) (*s3.HeadObjectOutput, error) {
	if s.headErr != nil {
		return nil, s.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (s *stubObjectAPI) GetObjectRequest(_ *s3.GetObjectInput) (*request.Request, *s3.GetObjectOutput) {
	panic("not used")
}

func TestObjectExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		headErr   error
		wantErr   bool
		retryable bool
	}{
		{
			name:    "object present",
			headErr: nil,
			wantErr: false,
		},
		{
			name:      "missing object is permanent",
			headErr:   awserr.New("NotFound", "no such object", nil),
			wantErr:   true,
			retryable: false,
		},
		{
			name:      "connectivity failure is transient",
			headErr:   awserr.New(request.ErrCodeRequestError, "connection refused", nil),
			wantErr:   true,
			retryable: true,
		},
		{
			name: "server error is transient",
			headErr: awserr.NewRequestFailure(
				awserr.New("InternalError", "we encountered an internal error", nil), 500, "req-1"),
			wantErr:   true,
			retryable: true,
		},
		{
			name: "access denied is neither",
			headErr: awserr.NewRequestFailure(
				awserr.New("AccessDenied", "access denied", nil), 403, "req-2"),
			wantErr:   true,
			retryable: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			signer := &Signer{
				svc:    &stubObjectAPI{headErr: tc.headErr},
				bucket: "media-assets",
				logger: slog.Default(),
			}

			err := signer.ObjectExists(context.Background(), "originals/cat.jpg")
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.retryable, errors.Is(err, resilience.ErrTransient))
		})
	}
}

func TestClassifyStoreErrorMentionsKey(t *testing.T) {
	t.Parallel()

	err := classifyStoreError("originals/cat.jpg",
		awserr.New(s3.ErrCodeNoSuchKey, "the specified key does not exist", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrPermanent))
	assert.True(t, strings.Contains(err.Error(), "originals/cat.jpg"))
}
