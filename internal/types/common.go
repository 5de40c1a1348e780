package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Backend endpoints.
const (
	LastReportPath    = "/getLastReport/"
	ReportResultsPath = "/getReportResults/"
	RequestReportPath = "/requestReport/"
	ReportResultPath  = "/getReportResult/%d"
)

// Field names one of the six report request inputs. The value is the wire name.
type Field string

const (
	FieldRegion          Field = "region"
	FieldEndpointURL     Field = "endpoint_url"
	FieldAccessKeyID     Field = "aws_access_key_id"
	FieldSecretAccessKey Field = "aws_secret_access_key"
	FieldBucketName      Field = "bucket_name"
	FieldKeyName         Field = "key_name"
)

// Fields lists the request fields in form order.
var Fields = []Field{
	FieldRegion,
	FieldEndpointURL,
	FieldAccessKeyID,
	FieldSecretAccessKey,
	FieldBucketName,
	FieldKeyName,
}

var fieldLabels = map[Field]string{
	FieldRegion:          "Region",
	FieldEndpointURL:     "Endpoint url",
	FieldAccessKeyID:     "AWS access key Id",
	FieldSecretAccessKey: "AWS secret access key",
	FieldBucketName:      "Bucket",
	FieldKeyName:         "Key",
}

var ErrUnknownField = errors.New("unknown report request field")

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if _, ok := fieldLabels[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

// Label is the human readable input label.
func (f Field) Label() string {
	return fieldLabels[f]
}

// ReportRequest carries the S3 location of the video the backend should analyse.
// The zero value is an empty form.
type ReportRequest struct {
	Region             string `json:"region"`
	EndpointURL        string `json:"endpoint_url"`
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	BucketName         string `json:"bucket_name"`
	KeyName            string `json:"key_name"`
}

func (r *ReportRequest) ptr(f Field) *string {
	switch f {
	case FieldRegion:
		return &r.Region
	case FieldEndpointURL:
		return &r.EndpointURL
	case FieldAccessKeyID:
		return &r.AWSAccessKeyID
	case FieldSecretAccessKey:
		return &r.AWSSecretAccessKey
	case FieldBucketName:
		return &r.BucketName
	case FieldKeyName:
		return &r.KeyName
	}
	return nil
}

// Get returns the value of a single field.
func (r *ReportRequest) Get(f Field) string {
	if p := r.ptr(f); p != nil {
		return *p
	}
	return ""
}

// Set updates a single field and leaves the others untouched.
func (r *ReportRequest) Set(f Field, value string) error {
	p := r.ptr(f)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(f))
	}
	*p = value
	return nil
}

// String hides the secret access key.
func (r ReportRequest) String() string {
	return fmt.Sprintf("{region:%s endpoint:%s bucket:%s key:%s}", r.Region, r.EndpointURL, r.BucketName, r.KeyName)
}

// ReportResult is one row of aggregated emotion statistics produced by the backend.
type ReportResult struct {
	ID             int64   `json:"id"`
	ReportResultID int64   `json:"reportResultId"`
	Neutral        float64 `json:"neutral"`
	Angry          float64 `json:"angry"`
	Disgust        float64 `json:"disgust"`
	Fear           float64 `json:"fear"`
	Happy          float64 `json:"happy"`
	Sad            float64 `json:"sad"`
	Surprise       float64 `json:"surprise"`
	LookedAway     float64 `json:"lookedAway"`
}

// Columns is the fixed table header order.
var Columns = []string{
	"ReportResultId",
	"Neutral",
	"Angry",
	"Disgust",
	"Fear",
	"Happy",
	"Sad",
	"Surprise",
	"Looked away",
}

// Cells renders the result in Columns order.
func (r ReportResult) Cells() []string {
	return []string{
		strconv.FormatInt(r.ReportResultID, 10),
		formatFloat(r.Neutral),
		formatFloat(r.Angry),
		formatFloat(r.Disgust),
		formatFloat(r.Fear),
		formatFloat(r.Happy),
		formatFloat(r.Sad),
		formatFloat(r.Surprise),
		formatFloat(r.LookedAway),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
