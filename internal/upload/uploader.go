package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog/log"

	"github.com/gostones/emotion-report/internal/types"
)

const abortTimeout = 30 * time.Second

// NewS3Client builds an S3 client from the location and keys of a report request.
// Path style addressing keeps S3 compatible endpoints working.
func NewS3Client(loc types.ReportRequest) (s3iface.S3API, error) {
	cfg := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(loc.AWSAccessKeyID, loc.AWSSecretAccessKey, ""),
		Region:           aws.String(loc.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if loc.EndpointURL != "" {
		cfg.Endpoint = aws.String(loc.EndpointURL)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return s3.New(sess), nil
}

// Uploader puts local videos into a bucket so the backend can analyse them.
type Uploader struct {
	svc         s3iface.S3API
	partSize    int64
	concurrency int

	progress Counter
}

func NewUploader(svc s3iface.S3API, partSize int64, concurrency int) *Uploader {
	return &Uploader{svc: svc, partSize: partSize, concurrency: concurrency}
}

// Result describes a completed upload.
type Result struct {
	Location string
	Bucket   string
	Key      string
	ETag     string
	Size     int64
	Parts    int
}

// EnsureBucket creates the bucket unless it is already listed.
func (u *Uploader) EnsureBucket(ctx context.Context, bucket string) (bool, error) {
	out, err := u.svc.ListBucketsWithContext(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return false, fmt.Errorf("list buckets: %w", err)
	}
	for _, b := range out.Buckets {
		if aws.StringValue(b.Name) == bucket {
			return false, nil
		}
	}
	log.Info().Str("bucket", bucket).Msg("bucket does not exist, creating")
	if _, err := u.svc.CreateBucketWithContext(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return false, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return true, nil
}

// Progress returns the number of bytes uploaded by the current Upload.
func (u *Uploader) Progress() int64 {
	return u.progress.Load()
}

// Upload sends filename to bucket/key as a multipart upload. Parts carry a
// Content-MD5 so the store rejects corrupted bodies. On failure the multipart
// upload is aborted.
func (u *Uploader) Upload(ctx context.Context, filename, bucket, key string) (*Result, error) {
	fc := NewFileChunk(filename, u.partSize)
	if err := fc.Open(); err != nil {
		return nil, err
	}
	defer fc.Close()

	u.progress.Reset()

	created, err := u.svc.CreateMultipartUploadWithContext(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fc.ContentType()),
	})
	if err != nil {
		return nil, fmt.Errorf("can't obtain upload id: %w", err)
	}
	uploadID := aws.StringValue(created.UploadId)
	log.Info().
		Str("file", fc.Name()).
		Str("contentType", fc.ContentType()).
		Int64("size", fc.Size()).
		Int("parts", fc.Count()).
		Str("uploadId", uploadID).
		Msg("multipart upload started")

	completed := make([]*s3.CompletedPart, fc.Count())
	err = fc.Each(ctx, u.concurrency, func(ctx context.Context, p *Part) error {
		b64, _, err := p.MD5()
		if err != nil {
			return err
		}
		out, err := u.svc.UploadPartWithContext(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(bucket),
			Key:           aws.String(key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int64(p.Number),
			ContentMD5:    aws.String(b64),
			ContentLength: aws.Int64(p.Size()),
			Body:          p.SectionReader,
		})
		if err != nil {
			return fmt.Errorf("part %d: %w", p.Number, err)
		}
		completed[p.Number-1] = &s3.CompletedPart{
			ETag:       out.ETag,
			PartNumber: aws.Int64(p.Number),
		}
		done := u.progress.Add(p.Size())
		log.Debug().
			Int64("part", p.Number).
			Int64("uploaded", done).
			Int64("total", fc.Size()).
			Msg("part uploaded")
		return nil
	})
	if err != nil {
		u.abort(ctx, bucket, key, uploadID)
		return nil, err
	}

	out, err := u.svc.CompleteMultipartUploadWithContext(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		u.abort(ctx, bucket, key, uploadID)
		return nil, fmt.Errorf("can't complete upload: %w", err)
	}

	return &Result{
		Location: aws.StringValue(out.Location),
		Bucket:   bucket,
		Key:      key,
		ETag:     aws.StringValue(out.ETag),
		Size:     fc.Size(),
		Parts:    fc.Count(),
	}, nil
}

// abort outlives the caller's cancellation so parts do not linger in the bucket.
func (u *Uploader) abort(ctx context.Context, bucket, key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abortTimeout)
	defer cancel()
	_, err := u.svc.AbortMultipartUploadWithContext(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		log.Warn().Err(err).Str("uploadId", uploadID).Msg("abort multipart upload")
	}
}
