package mrt

import (
	"encoding/binary"
	"fmt"
)

// Cursor is a read position over a byte region. Every read is bounds checked
// and big-endian; a failed read leaves the position unchanged. Spans returned
// by Take alias the underlying region and are never copied.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

func (c *Cursor) need(n int) error {
	if n < 0 || c.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.off, c.Remaining())
	}
	return nil
}

// ReadU8 reads one byte.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.off : c.off+2])
	c.off += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.off : c.off+4])
	c.off += 4
	return v, nil
}

// Take returns the next n bytes as a span of the underlying region.
func (c *Cursor) Take(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	// Cap the span so appends by a caller cannot write into the next record.
	span := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return span, nil
}

// TakeU16 reads a 16-bit length and then a span of that length. The length
// field is not consumed if the span is short.
func (c *Cursor) TakeU16() ([]byte, error) {
	start := c.off
	n, err := c.ReadU16()
	if err != nil {
		return nil, err
	}
	span, err := c.Take(int(n))
	if err != nil {
		c.off = start
		return nil, err
	}
	return span, nil
}
