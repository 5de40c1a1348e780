package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Filename is the name the last report is saved under.
const Filename = "emotional_report.pdf"

// Fetcher returns the most recent report as raw bytes.
type Fetcher interface {
	LastReport(ctx context.Context) ([]byte, error)
}

// Blob is a fetched report. It is handed straight to the caller and never cached.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

type Downloader struct {
	src Fetcher
}

func New(src Fetcher) *Downloader {
	return &Downloader{src: src}
}

// Fetch performs one GET for the last report.
func (d *Downloader) Fetch(ctx context.Context) (*Blob, error) {
	data, err := d.src.LastReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch last report: %w", err)
	}
	ct := http.DetectContentType(data)
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		ct = "application/pdf"
	}
	return &Blob{Name: Filename, ContentType: ct, Data: data}, nil
}

// WriteTo fetches the report and copies it to w.
func (d *Downloader) WriteTo(ctx context.Context, w io.Writer) (*Blob, error) {
	b, err := d.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b.Data); err != nil {
		return nil, fmt.Errorf("write %s: %w", b.Name, err)
	}
	return b, nil
}

// SaveFile fetches the report and stores it as dir/emotional_report.pdf,
// replacing any previous copy. It returns the written path.
func (d *Downloader) SaveFile(ctx context.Context, dir string) (string, error) {
	b, err := d.Fetch(ctx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, b.Name)
	tmp, err := os.CreateTemp(dir, ".emotional_report-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b.Data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("bytes", len(b.Data)).Msg("last report saved")
	return path, nil
}
