package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostones/emotion-report/internal/types"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		raw    string
		host   string
		secure bool
	}{
		{"https://s3.example.com", "s3.example.com", true},
		{"http://localhost:9000", "localhost:9000", false},
		{"https://s3.example.com/", "s3.example.com", true},
		{"minio.internal:9000", "minio.internal:9000", true},
		{"", "s3.amazonaws.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, secure, err := endpoint(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.secure, secure)
		})
	}

	_, _, err := endpoint("ftp://files.example.com")
	assert.Error(t, err)
}

func TestNewProbe(t *testing.T) {
	p, err := NewProbe(types.ReportRequest{
		Region:             "us-east-1",
		EndpointURL:        "http://localhost:9000",
		AWSAccessKeyID:     "minio",
		AWSSecretAccessKey: "minio123",
		BucketName:         "videos",
		KeyName:            "video.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "videos", p.bucket)
	assert.Equal(t, "localhost:9000", p.client.EndpointURL().Host)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}), ErrObjectNotFound)
	assert.ErrorIs(t, classify(minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}), ErrBucketNotFound)
	assert.ErrorIs(t, classify(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}), ErrAccessDenied)

	other := errors.New("dial tcp: connection refused")
	assert.Equal(t, other, classify(other))
}

type fakeChecker struct {
	err error
}

func (f fakeChecker) Check(ctx context.Context) (*ObjectInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ObjectInfo{Bucket: "videos", Key: "video.mp4", Size: 1024}, nil
}

type fakeSubmitter struct {
	calls int
}

func (f *fakeSubmitter) RequestReport(ctx context.Context, req types.ReportRequest) (string, error) {
	f.calls++
	return "5", nil
}

func TestPreflightSubmitter(t *testing.T) {
	next := &fakeSubmitter{}
	s := NewPreflightSubmitter(next)
	s.newChecker = func(types.ReportRequest) (Checker, error) { return fakeChecker{}, nil }

	id, err := s.RequestReport(context.Background(), types.ReportRequest{BucketName: "videos"})
	require.NoError(t, err)
	assert.Equal(t, "5", id)
	assert.Equal(t, 1, next.calls)
}

func TestPreflightSubmitterStopsOnMissingObject(t *testing.T) {
	next := &fakeSubmitter{}
	s := NewPreflightSubmitter(next)
	s.newChecker = func(types.ReportRequest) (Checker, error) {
		return fakeChecker{err: ErrObjectNotFound}, nil
	}

	_, err := s.RequestReport(context.Background(), types.ReportRequest{})
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Zero(t, next.calls)
}

func TestPreflightSubmitterBadEndpoint(t *testing.T) {
	next := &fakeSubmitter{}
	_, err := NewPreflightSubmitter(next).RequestReport(context.Background(), types.ReportRequest{EndpointURL: "ftp://x"})
	assert.Error(t, err)
	assert.Zero(t, next.calls)
}
