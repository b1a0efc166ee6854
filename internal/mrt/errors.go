package mrt

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when fewer bytes remain than a field requires.
	ErrTruncated = errors.New("mrt: truncated")

	// ErrInvalidStatus is returned when a TABLE_DUMP status byte is not 1.
	ErrInvalidStatus = errors.New("mrt: invalid table dump status")

	// ErrInvalidPrefixLength is returned when a TABLE_DUMP prefix length
	// exceeds the width of its address family.
	ErrInvalidPrefixLength = errors.New("mrt: invalid prefix length")

	// ErrTrailingBytes reports a body decoder that left part of the declared
	// body unread. The record itself is still usable.
	ErrTrailingBytes = errors.New("mrt: trailing bytes after body")

	// ErrTruncatedHeader is the fatal stream fault: some bytes remain but not
	// enough for a record header, so the record boundary cannot be trusted.
	ErrTruncatedHeader = errors.New("mrt: truncated record header")

	// ErrEmptyFile is wrapped by OpenError for zero-length dumps.
	ErrEmptyFile = errors.New("mrt: empty file")
)

// OpenError is returned by Open when a dump cannot be mapped or loaded.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("mrt: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// RecordError describes a failure local to one record. The stream has already
// moved past the record's declared body when it is returned.
type RecordError struct {
	Offset int // byte offset of the record header within the dump
	Kind   Kind
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("mrt: record %s at offset %d: %v", e.Kind, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Warning reports whether the error is advisory only.
func (e *RecordError) Warning() bool {
	return errors.Is(e.Err, ErrTrailingBytes)
}
