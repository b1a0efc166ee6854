package mrt

import "time"

// Header sizes.
const (
	CommonHeaderSize     = 12 // timestamp(4) + type(2) + subtype(2) + length(4)
	MicrosecondFieldSize = 4
	ExtendedHeaderSize   = CommonHeaderSize + MicrosecondFieldSize
)

// Header is the common MRT record header.
type Header struct {
	Timestamp    uint32 // seconds since epoch
	Type         uint16
	Subtype      uint16
	Length       uint32 // declared body length, excluding the header
	Microseconds uint32 // zero unless Extended
	Extended     bool
}

// Time returns the record time including the microsecond extension.
func (h Header) Time() time.Time {
	return time.Unix(int64(h.Timestamp), int64(h.Microseconds)*1000).UTC()
}

// Size returns the number of header bytes on the wire.
func (h Header) Size() int {
	if h.Extended {
		return ExtendedHeaderSize
	}
	return CommonHeaderSize
}

// decodeHeader reads a record header and classifies it. On failure the
// cursor is left where it was before the call.
func decodeHeader(c *Cursor) (Header, Kind, error) {
	start := c.off
	var h Header
	var err error

	fail := func(err error) (Header, Kind, error) {
		c.off = start
		return Header{}, Kind{}, err
	}

	if h.Timestamp, err = c.ReadU32(); err != nil {
		return fail(err)
	}
	if h.Type, err = c.ReadU16(); err != nil {
		return fail(err)
	}
	if h.Subtype, err = c.ReadU16(); err != nil {
		return fail(err)
	}
	if h.Length, err = c.ReadU32(); err != nil {
		return fail(err)
	}

	kind := Classify(h.Type, h.Subtype)
	if kind.Extended() {
		if h.Microseconds, err = c.ReadU32(); err != nil {
			return fail(err)
		}
		h.Extended = true
	}
	return h, kind, nil
}
