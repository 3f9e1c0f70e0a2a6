// Package textio opens line-oriented text inputs: plain or gzip-compressed
// files, or stdin, decoded leniently as UTF-8.
package textio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDecodingReader returns a reader that strips a leading UTF-8 BOM and
// replaces invalid UTF-8 bytes with U+FFFD.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// Reader is an opened text input. Close releases the file and any
// decompressor.
type Reader struct {
	io.Reader
	closers []io.Closer
}

func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading. "-" reads stdin. Gzip input is detected by
// its magic bytes and decompressed with pgzip.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return Wrap(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := Wrap(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closers = append([]io.Closer{f}, r.closers...)
	return r, nil
}

// Wrap decodes an already opened stream. The caller keeps ownership of src.
func Wrap(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)
	r := &Reader{}

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.closers = append(r.closers, gz)
		r.Reader = NewDecodingReader(gz)
		return r, nil
	}

	r.Reader = NewDecodingReader(br)
	return r, nil
}
