package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gostones/emotion-report/internal/types"
)

type recorded struct {
	method string
	path   string
	body   []byte
}

type backend struct {
	mu    sync.Mutex
	calls []recorded
}

func (b *backend) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, recorded{method: r.Method, path: r.URL.Path, body: body})
}

func (b *backend) Calls() []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recorded(nil), b.calls...)
}

func newBackend(t *testing.T, h http.HandlerFunc) (*backend, *Client) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, New(srv.URL+"/", 5*time.Second)
}

func TestRequestReportPostsFullMapping(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("42"))
	})

	req := types.ReportRequest{
		Region:             "us-east-1",
		EndpointURL:        "https://s3.example.com",
		AWSAccessKeyID:     "AKIA...",
		AWSSecretAccessKey: "secret",
		BucketName:         "my-bucket",
		KeyName:            "video.mp4",
	}
	id, err := c.RequestReport(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, types.RequestReportPath, calls[0].path)
	assert.JSONEq(t, `{
		"region": "us-east-1",
		"endpoint_url": "https://s3.example.com",
		"aws_access_key_id": "AKIA...",
		"aws_secret_access_key": "secret",
		"bucket_name": "my-bucket",
		"key_name": "video.mp4"
	}`, string(calls[0].body))
}

func TestRequestReportPassesEmptyFields(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"7"`))
	})

	id, err := c.RequestReport(context.Background(), types.ReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	var got map[string]string
	require.NoError(t, json.Unmarshal(b.Calls()[0].body, &got))
	assert.Len(t, got, 6)
	for _, v := range got {
		assert.Equal(t, "", v)
	}
}

func TestReportResults(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "reportResultId": 10, "neutral": 60.5, "happy": 20, "lookedAway": 19.5},
			{"id": 2, "reportResultId": 11, "sad": 100}
		]`))
	})

	results, err := c.ReportResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(10), results[0].ReportResultID)
	assert.Equal(t, 60.5, results[0].Neutral)
	assert.Equal(t, 19.5, results[0].LookedAway)
	assert.Equal(t, float64(100), results[1].Sad)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].method)
	assert.Equal(t, types.ReportResultsPath, calls[0].path)
}

func TestReportResultsEmpty(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	results, err := c.ReportResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReportResultsRejectsNonJSONAnswer(t *testing.T) {
	for _, ct := range []string{"text/plain; charset=utf-8", "text/html", ""} {
		t.Run(ct, func(t *testing.T) {
			_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header()["Content-Type"] = []string{ct}
				w.Write([]byte(`[{"id": 1, "reportResultId": 7, "happy": 50}]`))
			})

			results, err := c.ReportResults(context.Background())
			require.Error(t, err)
			assert.Nil(t, results)

			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, http.MethodGet, decErr.Method)
			assert.Equal(t, types.ReportResultsPath, decErr.Path)
			assert.Equal(t, ct, decErr.ContentType)
		})
	}
}

func TestReportResultsRejectsMalformedJSON(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detail": "not a list"}`))
	})

	_, err := c.ReportResults(context.Background())
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, err.Error(), types.ReportResultsPath)
}

func TestReportResultRejectsHTMLPage(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>login</body></html>"))
	})

	_, err := c.ReportResult(context.Background(), 7)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.False(t, IsNotFound(err))
}

func TestReportResultByID(t *testing.T) {
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getReportResult/10" {
			http.Error(w, `{"detail":"No such report result."}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "reportResultId": 10, "fear": 3.5}`))
	})

	res, err := c.ReportResult(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3.5, res.Fear)

	_, err = c.ReportResult(context.Background(), 11)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "No such report result.")
	assert.Len(t, b.Calls(), 2)
}

func TestLastReportReturnsBinaryBody(t *testing.T) {
	pdf := []byte("%PDF-1.4\x00\x01\x02binary")
	b, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdf)
	})

	got, err := c.LastReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	calls := b.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.LastReportPath, calls[0].path)
}

func TestServerErrorIsAPIError(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.ReportResults(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Equal(t, "boom", apiErr.Body)
	assert.False(t, IsNotFound(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second)
	_, err := c.LastReport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), types.LastReportPath)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestCancelledContext(t *testing.T) {
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RequestReport(ctx, types.ReportRequest{})
	assert.Error(t, err)
}

func TestQueryParamOption(t *testing.T) {
	var query string
	_, c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
	})

	_, err := c.Get(context.Background(), "/anything", WithQueryParam("limit", "5"))
	require.NoError(t, err)
	assert.Equal(t, "limit=5", query)
}
