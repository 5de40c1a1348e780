package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/gostones/emotion-report/internal/types"
)

var ErrSubmitInFlight = errors.New("form: a report request is already in flight")

// Submitter sends a report request to the backend and returns the new result id.
type Submitter interface {
	RequestReport(ctx context.Context, req types.ReportRequest) (string, error)
}

// Refresher reloads the report list after a successful submission.
type Refresher interface {
	Load(ctx context.Context) error
}

// Form holds the six report request inputs and the loading flag.
type Form struct {
	submitter Submitter
	refresher Refresher

	mu      sync.Mutex
	values  types.ReportRequest
	loading atomic.Bool
}

func New(s Submitter, r Refresher) *Form {
	return &Form{submitter: s, refresher: r}
}

// Set updates one input. The other five are untouched.
func (f *Form) Set(field types.Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Set(field, value)
}

func (f *Form) Get(field types.Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values.Get(field)
}

func (f *Form) Values() types.ReportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Reset puts every input back to the empty string.
func (f *Form) Reset() {
	f.mu.Lock()
	f.values = types.ReportRequest{}
	f.mu.Unlock()
}

func (f *Form) apply(updates map[types.Field]string) (types.ReportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.values
	for field, value := range updates {
		if err := next.Set(field, value); err != nil {
			return types.ReportRequest{}, err
		}
	}
	f.values = next
	return next, nil
}

// Loading reports whether a submission is in flight.
func (f *Form) Loading() bool {
	return f.loading.Load()
}

// begin raises the loading flag and returns its idempotent release.
func (f *Form) begin() (func(), bool) {
	if !f.loading.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { f.loading.Store(false) })
	}, true
}

// Submit posts the current inputs, then on success clears them and reloads
// the report list. The loading flag drops as soon as the POST settles, on
// every path. A failed POST keeps the inputs and skips the reload.
func (f *Form) Submit(ctx context.Context) (string, error) {
	return f.SubmitWith(ctx, nil)
}

// SubmitWith applies updates and submits in one step. The updates are only
// applied once the submission is accepted, so a rejected call leaves the
// inputs of the in-flight submission alone.
func (f *Form) SubmitWith(ctx context.Context, updates map[types.Field]string) (string, error) {
	release, ok := f.begin()
	if !ok {
		return "", ErrSubmitInFlight
	}
	defer release()

	req, err := f.apply(updates)
	if err != nil {
		return "", err
	}
	log.Info().Str("bucket", req.BucketName).Str("key", req.KeyName).Msg("requesting report")

	id, err := f.submitter.RequestReport(ctx, req)
	release()
	if err != nil {
		return "", fmt.Errorf("request report: %w", err)
	}
	log.Info().Str("reportResultId", id).Msg("report generated")

	f.Reset()

	if f.refresher != nil {
		if err := f.refresher.Load(ctx); err != nil {
			return id, fmt.Errorf("refresh report list: %w", err)
		}
	}
	return id, nil
}
