// Package reports mirrors the backend's report results for display.
package reports

import (
	"context"
	"sync"

	"github.com/gostones/emotion-report/internal/types"
)

// Source yields the full set of report results.
type Source interface {
	ReportResults(ctx context.Context) ([]types.ReportResult, error)
}

// Row is one rendered table row, keyed by the result id.
type Row struct {
	Key   int64
	Cells []string
}

// List holds the last fetched results. The server owns the data; List never
// merges or deduplicates.
type List struct {
	src Source

	mu    sync.RWMutex
	items []types.ReportResult
}

func NewList(src Source) *List {
	return &List{src: src}
}

// Load fetches the results once and replaces the local copy. On error the
// previous items are kept.
func (l *List) Load(ctx context.Context) error {
	items, err := l.src.ReportResults(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

func (l *List) Items() []types.ReportResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.ReportResult(nil), l.items...)
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Columns returns the header in display order.
func (l *List) Columns() []string {
	return types.Columns
}

// Rows renders one row per item, in response order.
func (l *List) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows := make([]Row, 0, len(l.items))
	for _, it := range l.items {
		rows = append(rows, Row{Key: it.ID, Cells: it.Cells()})
	}
	return rows
}
