// Package decode turns uploaded bytes into text using the encoding label
// chosen on the upload form.
package decode

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no label is given.
const DefaultEncoding = "utf-8"

// ErrUnknownEncoding is returned for labels the WHATWG index does not know.
var ErrUnknownEncoding = errors.New("unknown encoding")

func lookup(name string) (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	if label == "" {
		label = DefaultEncoding
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Normalize returns the canonical label for name ("latin1" becomes
// "windows-1252", "" becomes "utf-8").
func Normalize(name string) (string, error) {
	enc, err := lookup(name)
	if err != nil {
		return "", err
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return canonical, nil
}

// Text decodes data with the named encoding. A leading UTF-8 or UTF-16
// byte order mark overrides the label and is removed. Invalid sequences
// decode to U+FFFD.
func Text(data []byte, name string) (string, error) {
	enc, err := lookup(name)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}

	t := unicode.BOMOverride(enc.NewDecoder())
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}
