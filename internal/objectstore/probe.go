// Package objectstore checks that the video a report request points at exists
// before the backend is asked to analyse it.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/gostones/emotion-report/internal/types"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrAccessDenied   = errors.New("access denied")
)

type ObjectInfo struct {
	Bucket       string
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Probe stats one object with the credentials of a report request.
type Probe struct {
	client *minio.Client
	bucket string
	key    string
}

func NewProbe(req types.ReportRequest) (*Probe, error) {
	host, secure, err := endpoint(req.EndpointURL)
	if err != nil {
		return nil, err
	}
	cli, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(req.AWSAccessKeyID, req.AWSSecretAccessKey, ""),
		Secure: secure,
		Region: req.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &Probe{client: cli, bucket: req.BucketName, key: req.KeyName}, nil
}

// endpoint turns an endpoint URL into the host and TLS flag minio expects.
// A bare host means https; no endpoint means AWS.
func endpoint(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "s3.amazonaws.com", true, nil
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), true, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("endpoint url: %w", err)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	}
	return "", false, fmt.Errorf("endpoint url: unsupported scheme %q", u.Scheme)
}

// Check stats the object.
func (p *Probe) Check(ctx context.Context) (*ObjectInfo, error) {
	info, err := p.client.StatObject(ctx, p.bucket, p.key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", p.bucket, p.key, classify(err))
	}
	return &ObjectInfo{
		Bucket:       p.bucket,
		Key:          p.key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

func classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return ErrObjectNotFound
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}

// Checker verifies an object exists.
type Checker interface {
	Check(ctx context.Context) (*ObjectInfo, error)
}

// Submitter matches the form's view of the backend.
type Submitter interface {
	RequestReport(ctx context.Context, req types.ReportRequest) (string, error)
}

// PreflightSubmitter checks the object before forwarding the report request.
type PreflightSubmitter struct {
	next       Submitter
	newChecker func(types.ReportRequest) (Checker, error)
}

func NewPreflightSubmitter(next Submitter) *PreflightSubmitter {
	return &PreflightSubmitter{
		next: next,
		newChecker: func(req types.ReportRequest) (Checker, error) {
			p, err := NewProbe(req)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
}

func (s *PreflightSubmitter) RequestReport(ctx context.Context, req types.ReportRequest) (string, error) {
	checker, err := s.newChecker(req)
	if err != nil {
		return "", fmt.Errorf("preflight: %w", err)
	}
	info, err := checker.Check(ctx)
	if err != nil {
		return "", fmt.Errorf("preflight: %w", err)
	}
	log.Debug().
		Str("bucket", info.Bucket).
		Str("key", info.Key).
		Int64("size", info.Size).
		Msg("preflight ok")
	return s.next.RequestReport(ctx, req)
}
