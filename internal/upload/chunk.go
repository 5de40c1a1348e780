package upload

import (
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

// FileChunk splits a local file into fixed-size parts for a multipart upload.
type FileChunk struct {
	filename string
	partSize int64

	file        *os.File
	name        string
	contentType string
	parts       int   // number of parts
	size        int64 // file size
}

func NewFileChunk(filename string, partSize int64) *FileChunk {
	return &FileChunk{
		filename: filename,
		partSize: partSize,
	}
}

func (r *FileChunk) Open() error {
	if r.partSize <= 0 {
		return errors.New("part size must be positive")
	}
	file, err := os.Open(r.filename)
	if err != nil {
		return err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	if fi.IsDir() {
		file.Close()
		return errors.New(r.filename + " is a directory")
	}
	contentType, err := ContentType(file)
	if err != nil {
		file.Close()
		return err
	}

	size := fi.Size()
	parts := int(size / r.partSize)
	// an empty file still needs one (empty) part
	if size%r.partSize != 0 || parts == 0 {
		parts++
	}

	r.file = file
	r.name = fi.Name()
	r.size = size
	r.parts = parts
	r.contentType = contentType
	return nil
}

func (r *FileChunk) Close() error {
	if r.file == nil {
		return os.ErrInvalid
	}
	return r.file.Close()
}

// Part is one slice of the file. Number starts at 1 as S3 expects.
type Part struct {
	Number int64
	Offset int64
	*io.SectionReader

	file *os.File
}

// MD5 checksums the part without moving its read position.
func (p *Part) MD5() (string, string, error) {
	return MD5Sum(io.NewSectionReader(p.file, p.Offset, p.Size()))
}

// Parts returns a fresh reader for every part.
func (r *FileChunk) Parts() []*Part {
	parts := make([]*Part, r.parts)
	for i := 0; i < r.parts; i++ {
		off := int64(i) * r.partSize
		limit := off + r.partSize
		// last part ends at the file size
		if i == r.parts-1 {
			limit = r.size
		}
		parts[i] = &Part{
			Number:        int64(i + 1),
			Offset:        off,
			SectionReader: io.NewSectionReader(r.file, off, limit-off),
			file:          r.file,
		}
	}
	return parts
}

// Each calls fn for every part with at most limit calls running at once.
// The first error cancels the context passed to the remaining calls.
func (r *FileChunk) Each(ctx context.Context, limit int, fn func(context.Context, *Part) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, p := range r.Parts() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, p)
		})
	}
	return g.Wait()
}

func (r *FileChunk) Filename() string {
	return r.filename
}

func (r *FileChunk) PartSize() int64 {
	return r.partSize
}

func (r *FileChunk) Name() string {
	return r.name
}

func (r *FileChunk) ContentType() string {
	return r.contentType
}

// MD5 checksums the whole file.
func (r *FileChunk) MD5() (string, string, error) {
	return MD5Sum(io.NewSectionReader(r.file, 0, r.size))
}

func (r *FileChunk) Size() int64 {
	return r.size
}

func (r *FileChunk) Count() int {
	return r.parts
}
