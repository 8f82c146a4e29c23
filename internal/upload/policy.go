// Package upload validates and reads uploaded files and converts them to
// delimited text for internal/ingest.
package upload

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes is the upload size limit (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Policy limits what may be uploaded.
type Policy struct {
	MaxBytes   int64
	Extensions []string
}

// DefaultPolicy accepts delimited text, spreadsheets and HTML tables up to
// DefaultMaxBytes.
func DefaultPolicy() Policy {
	return Policy{
		MaxBytes:   DefaultMaxBytes,
		Extensions: []string{".csv", ".tsv", ".txt", ".xlsx", ".html", ".htm"},
	}
}

// Ext returns the lowercased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

func (p Policy) allows(name string) bool {
	ext := Ext(name)
	if ext == "" {
		return false
	}
	for _, e := range p.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Check validates the file name and declared size. Zero-length files pass;
// they fail later as empty input.
func (p Policy) Check(name string, size int64) error {
	if !p.allows(name) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, Ext(name))
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, p.MaxBytes)
	}
	return nil
}

// Read reads at most MaxBytes+1 bytes from r and fails with ErrFileTooLarge
// when the limit is exceeded. The extension is checked first.
func (p Policy) Read(name string, r io.Reader) ([]byte, error) {
	if err := p.Check(name, 0); err != nil {
		return nil, err
	}
	if p.MaxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, p.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, p.MaxBytes)
	}
	return data, nil
}
