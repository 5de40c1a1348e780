package download

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeFetcher) LastReport(ctx context.Context) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

var pdf = []byte("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")

func TestFetch(t *testing.T) {
	src := &fakeFetcher{data: pdf}
	b, err := New(src).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "emotional_report.pdf", b.Name)
	assert.Equal(t, "application/pdf", b.ContentType)
	assert.Equal(t, pdf, b.Data)
}

func TestWriteTo(t *testing.T) {
	src := &fakeFetcher{data: pdf}
	var buf bytes.Buffer
	b, err := New(src).WriteTo(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, Filename, b.Name)
	assert.Equal(t, pdf, buf.Bytes())
	assert.Equal(t, 1, src.calls)
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Filename), []byte("old"), 0o644))

	src := &fakeFetcher{data: pdf}
	path, err := New(src).SaveFile(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "emotional_report.pdf"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)
	assert.Equal(t, 1, src.calls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveFileError(t *testing.T) {
	dir := t.TempDir()
	_, err := New(&fakeFetcher{err: errors.New("503")}).SaveFile(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch last report")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}
