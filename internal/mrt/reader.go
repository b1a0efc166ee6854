package mrt

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Reader owns the byte region of one dump file. Plain dumps are memory
// mapped read-only; gzip and zstd dumps are decompressed into memory.
// Records returned by its streams alias the region and must not be used
// after Close.
type Reader struct {
	path   string
	data   []byte
	unmap  func([]byte) error
	closed bool
}

// Open maps the dump at path. All failures are returned as *OpenError.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	if fi.Size() == 0 {
		return nil, &OpenError{Path: path, Err: ErrEmptyFile}
	}

	data, unmap, err := mapFile(f, fi.Size())
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	r := &Reader{path: path, data: data, unmap: unmap}
	if !bytes.HasPrefix(data, gzipMagic) && !bytes.HasPrefix(data, zstdMagic) {
		return r, nil
	}

	plain, err := decompress(data)
	r.Close()
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	if len(plain) == 0 {
		return nil, &OpenError{Path: path, Err: ErrEmptyFile}
	}
	return &Reader{path: path, data: plain}, nil
}

// NewReader wraps an in-memory dump. Close is a no-op for such readers.
func NewReader(data []byte) *Reader {
	return &Reader{path: "<memory>", data: data}
}

func decompress(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return out, nil
}

// Path returns the file the reader was opened from.
func (r *Reader) Path() string { return r.path }

// Bytes returns the whole dump region.
func (r *Reader) Bytes() []byte { return r.data }

// Size returns the length of the dump region.
func (r *Reader) Size() int { return len(r.data) }

// Stream returns a new stream over the whole region.
func (r *Reader) Stream() *Stream {
	return NewStream(r.data)
}

// Close releases the region.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	data := r.data
	r.data = nil
	if r.unmap != nil {
		return r.unmap(data)
	}
	return nil
}
