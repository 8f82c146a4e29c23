package ingest

import (
	"errors"
	"fmt"
)

// ErrorKind tags a parse failure. The set is closed.
type ErrorKind string

const (
	KindEmptyInput      ErrorKind = "EmptyInput"
	KindNoDataAfterSkip ErrorKind = "NoDataAfterSkip"
	KindReadFailure     ErrorKind = "ReadFailure"
)

// Sentinels for errors.Is. Every error returned by this package is an
// *Error that matches exactly one of them.
var (
	ErrEmptyInput      = errors.New("no data found in file")
	ErrNoDataAfterSkip = errors.New("no data rows remain after skipping rows")
	ErrReadFailure     = errors.New("read file")
)

// Error is a tagged parse failure. Msg is what the user sees.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindEmptyInput:
		return target == ErrEmptyInput
	case KindNoDataAfterSkip:
		return target == ErrNoDataAfterSkip
	case KindReadFailure:
		return target == ErrReadFailure
	}
	return false
}

func emptyInput() *Error {
	return &Error{Kind: KindEmptyInput, Msg: ErrEmptyInput.Error()}
}

func noDataAfterSkip(skip int) *Error {
	return &Error{
		Kind: KindNoDataAfterSkip,
		Msg:  fmt.Sprintf("%s (skip_rows=%d)", ErrNoDataAfterSkip.Error(), skip),
	}
}

// ReadFailure wraps an error raised while reading or decoding the input.
// The message keeps the underlying text after a fixed prefix.
func ReadFailure(err error) *Error {
	msg := ErrReadFailure.Error()
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: KindReadFailure, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or "" when err is not a parse error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
