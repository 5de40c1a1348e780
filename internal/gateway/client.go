package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/gostones/emotion-report/internal/types"
)

// Client talks to the emotion analysis backend rooted at a base URL.
// It does not retry and adds no auth.
type Client struct {
	c *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().SetHostURL(strings.TrimRight(baseURL, "/"))
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{c: c}
}

// NewWithClient builds a Client on top of an existing http.Client.
func NewWithClient(baseURL string, hc *http.Client) *Client {
	return &Client{c: resty.NewWithClient(hc).SetHostURL(strings.TrimRight(baseURL, "/"))}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// DecodeError is a 2xx answer that does not carry the expected JSON document,
// e.g. an HTML page served by a proxy or by a wrong base URL.
type DecodeError struct {
	Method      string
	Path        string
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decode %q response: %v", e.Method, e.Path, e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errNotJSON = errors.New("not a JSON response")

// RequestOption customises a single request.
type RequestOption func(*resty.Request)

func WithAccept(mime string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader("Accept", mime)
	}
}

func WithQueryParam(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetQueryParam(key, value)
	}
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*resty.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*resty.Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, opts []RequestOption) (*resty.Response, error) {
	req := c.c.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return resp, &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}
	return resp, nil
}

// RequestReport asks the backend to analyse the object described by req.
// The backend answers with the id of the new report result.
func (c *Client) RequestReport(ctx context.Context, req types.ReportRequest) (string, error) {
	resp, err := c.Post(ctx, types.RequestReportPath, req, WithAccept("application/json"))
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(resp.Body())), `"`), nil
}

// GetJSON fetches path and decodes the JSON answer into v. A 2xx answer
// with a non-JSON content type or an undecodable body is a *DecodeError.
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}, opts ...RequestOption) error {
	opts = append([]RequestOption{WithAccept("application/json")}, opts...)
	resp, err := c.Get(ctx, path, opts...)
	if err != nil {
		return err
	}
	return decodeJSON(resp, http.MethodGet, path, v)
}

func decodeJSON(resp *resty.Response, method, path string, v interface{}) error {
	ct := resp.Header().Get("Content-Type")
	if !isJSON(ct) {
		return &DecodeError{Method: method, Path: path, ContentType: ct, Err: errNotJSON}
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return &DecodeError{Method: method, Path: path, ContentType: ct, Err: err}
	}
	return nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// ReportResults lists every report result known to the backend.
func (c *Client) ReportResults(ctx context.Context) ([]types.ReportResult, error) {
	var results []types.ReportResult
	if err := c.GetJSON(ctx, types.ReportResultsPath, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ReportResult fetches a single report result by its report result id.
func (c *Client) ReportResult(ctx context.Context, id int64) (types.ReportResult, error) {
	var result types.ReportResult
	err := c.GetJSON(ctx, fmt.Sprintf(types.ReportResultPath, id), &result)
	return result, err
}

// LastReport downloads the most recently generated PDF report.
func (c *Client) LastReport(ctx context.Context) ([]byte, error) {
	resp, err := c.Get(ctx, types.LastReportPath, WithAccept("application/pdf"))
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
