package mrt

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// Record is one decoded MRT record. Raw always holds exactly the declared
// body bytes (fewer only when the dump ends early) and aliases the dump
// region; Body is nil when the kind has no decoder or decoding failed.
type Record struct {
	Offset int // byte offset of the header within the dump
	Header Header
	Kind   Kind
	Body   Body
	Raw    []byte
}

// Bytes returns the full on-wire record, header included.
func (r *Record) Bytes(dump []byte) []byte {
	return dump[r.Offset : r.Offset+r.Header.Size()+len(r.Raw)]
}

// TableDump returns the decoded TABLE_DUMP entry, if any.
func (r *Record) TableDump() (*TableDumpEntry, bool) {
	e, ok := r.Body.(*TableDumpEntry)
	return e, ok
}

type streamState uint8

const (
	statePositioned streamState = iota
	stateExhausted
	stateFaulted
)

// Stream walks a dump region forward, one record per call to Next. The next
// record boundary is always taken from the declared body length, so a body
// that fails to decode never desynchronizes the records that follow it.
type Stream struct {
	buf   []byte
	cur   *Cursor
	state streamState
}

// NewStream returns a stream positioned at the start of buf.
func NewStream(buf []byte) *Stream {
	return &Stream{buf: buf, cur: NewCursor(buf)}
}

// Offset returns the position of the next record header.
func (s *Stream) Offset() int {
	return s.cur.Offset()
}

// Next decodes the next record.
//
// A nil error means the record decoded cleanly. A *RecordError is local to the
// returned record, which is still non-nil and carries its raw body; the
// stream has already resynchronized. io.EOF marks the end of the dump. An
// error wrapping ErrTruncatedHeader is returned once when the dump ends in the
// middle of a header; every later call returns io.EOF.
func (s *Stream) Next() (*Record, error) {
	if s.state != statePositioned {
		return nil, io.EOF
	}

	offset := s.cur.Offset()
	h, kind, err := decodeHeader(s.cur)
	if err != nil {
		if s.cur.Remaining() == 0 {
			s.state = stateExhausted
			return nil, io.EOF
		}
		s.state = stateFaulted
		return nil, fmt.Errorf("%w at offset %d: %w", ErrTruncatedHeader, offset, err)
	}

	// A body running past the end of the dump leaves the cursor empty, so
	// the call after it ends the stream.
	return readBody(s.cur, offset, h, kind)
}

// readBody consumes exactly the declared body from c and decodes it when the
// kind has a decoder. If the body runs past the end of c, the remaining bytes
// become the raw span and c is left empty.
func readBody(c *Cursor, offset int, h Header, kind Kind) (*Record, error) {
	rec := &Record{Offset: offset, Header: h, Kind: kind}

	body, err := c.Take(int(h.Length))
	if err != nil {
		rec.Raw, _ = c.Take(c.Remaining())
		return rec, &RecordError{Offset: offset, Kind: kind, Err: err}
	}
	rec.Raw = body

	decode := bodyDecoder(kind)
	if decode == nil {
		return rec, nil
	}

	// The decoder gets its own cursor over the body, so whatever it consumes
	// has no effect on where the next record starts.
	decoded, err := decode(NewCursor(body))
	if err != nil && !errors.Is(err, ErrTrailingBytes) {
		return rec, &RecordError{Offset: offset, Kind: kind, Err: err}
	}
	rec.Body = decoded
	if err != nil {
		return rec, &RecordError{Offset: offset, Kind: kind, Err: err}
	}
	return rec, nil
}

// All returns an iterator over the remaining records. Iteration stops after
// io.EOF, which is not yielded; a fatal header fault is yielded with a nil
// record and ends the sequence.
func (s *Stream) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) {
				return
			}
			if rec == nil {
				return
			}
		}
	}
}
