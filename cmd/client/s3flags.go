package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gostones/emotion-report/internal/types"
)

// s3Flags binds the six report request fields to command line flags.
// AWS credentials and location fall back to the usual environment variables.
type s3Flags struct {
	req types.ReportRequest
}

func (f *s3Flags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.req.Region, "region", os.Getenv("AWS_REGION"), "Region of the object storage")
	fs.StringVar(&f.req.EndpointURL, "endpoint-url", os.Getenv("AWS_ENDPOINT_URL"), "Endpoint url of the object storage")
	fs.StringVar(&f.req.AWSAccessKeyID, "access-key-id", os.Getenv("AWS_ACCESS_KEY_ID"), "AWS access key id")
	fs.StringVar(&f.req.AWSSecretAccessKey, "secret-access-key", os.Getenv("AWS_SECRET_ACCESS_KEY"), "AWS secret access key")
	fs.StringVarP(&f.req.BucketName, "bucket", "b", os.Getenv("AWS_BUCKET_NAME"), "Bucket name")
	fs.StringVarP(&f.req.KeyName, "key", "k", "", "Object key of the video")
}

func (f *s3Flags) request() types.ReportRequest {
	return f.req
}
