package mrt

import (
	"fmt"
	"net/netip"
	"time"
)

// TableDumpStatus is the only legal value of the TABLE_DUMP status octet.
const TableDumpStatus uint8 = 1

// Body is a decoded record payload.
type Body interface {
	bodyKind() Family
}

// TableDumpEntry is one TABLE_DUMP (v1) RIB entry.
//
// Body layout for AFI_IPv4 (addresses are 16 bytes for AFI_IPv6):
//
//	Offset  0: View Number (2 bytes)
//	Offset  2: Sequence Number (2 bytes)
//	Offset  4: Prefix (4 bytes)
//	Offset  8: Prefix Length (1 byte)
//	Offset  9: Status (1 byte, always 1)
//	Offset 10: Originated Time (4 bytes)
//	Offset 14: Peer IP Address (4 bytes)
//	Offset 18: Peer AS (2 bytes)
//	Offset 20: Attribute Length (2 bytes)
//	Offset 22: BGP Attributes (variable)
type TableDumpEntry struct {
	ViewNumber     uint16
	SequenceNumber uint16
	PrefixAddr     netip.Addr
	PrefixLength   uint8
	Status         uint8
	OriginatedTime uint32
	PeerAddr       netip.Addr
	PeerAS         uint16
	AttrLength     uint16
	Attributes     []byte // raw BGP path attributes, aliasing the dump
}

func (*TableDumpEntry) bodyKind() Family { return FamilyTableDump }

// Prefix returns the entry prefix. The result is invalid if the prefix
// length exceeds the address width.
func (e *TableDumpEntry) Prefix() netip.Prefix {
	return netip.PrefixFrom(e.PrefixAddr, int(e.PrefixLength))
}

// Originated returns the time the route was originated.
func (e *TableDumpEntry) Originated() time.Time {
	return time.Unix(int64(e.OriginatedTime), 0).UTC()
}

func decodeTableDumpIPv4(c *Cursor) (Body, error) {
	return decodeTableDump(c, 4)
}

func decodeTableDumpIPv6(c *Cursor) (Body, error) {
	return decodeTableDump(c, 16)
}

func decodeTableDump(c *Cursor, addrLen int) (Body, error) {
	e := &TableDumpEntry{}
	var err error

	if e.ViewNumber, err = c.ReadU16(); err != nil {
		return nil, fmt.Errorf("view number: %w", err)
	}
	if e.SequenceNumber, err = c.ReadU16(); err != nil {
		return nil, fmt.Errorf("sequence number: %w", err)
	}
	if e.PrefixAddr, err = readAddr(c, addrLen); err != nil {
		return nil, fmt.Errorf("prefix: %w", err)
	}
	if e.PrefixLength, err = c.ReadU8(); err != nil {
		return nil, fmt.Errorf("prefix length: %w", err)
	}
	if int(e.PrefixLength) > addrLen*8 {
		return nil, fmt.Errorf("%w: %d for a %d-bit address", ErrInvalidPrefixLength, e.PrefixLength, addrLen*8)
	}
	if e.Status, err = c.ReadU8(); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	if e.Status != TableDumpStatus {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStatus, e.Status)
	}
	if e.OriginatedTime, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("originated time: %w", err)
	}
	if e.PeerAddr, err = readAddr(c, addrLen); err != nil {
		return nil, fmt.Errorf("peer address: %w", err)
	}
	if e.PeerAS, err = c.ReadU16(); err != nil {
		return nil, fmt.Errorf("peer as: %w", err)
	}
	// A body that ends right after the peer AS carries no attribute length
	// and is read as an empty attribute span.
	if c.Remaining() == 0 {
		return e, nil
	}
	if e.Attributes, err = c.TakeU16(); err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	e.AttrLength = uint16(len(e.Attributes))

	if n := c.Remaining(); n > 0 {
		return e, fmt.Errorf("%w: %d unread", ErrTrailingBytes, n)
	}
	return e, nil
}

func readAddr(c *Cursor, n int) (netip.Addr, error) {
	b, err := c.Take(n)
	if err != nil {
		return netip.Addr{}, err
	}
	if n == 4 {
		return netip.AddrFrom4([4]byte(b)), nil
	}
	return netip.AddrFrom16([16]byte(b)), nil
}

// bodyDecoder returns the payload decoder for a kind, or nil when the kind is
// carried as an opaque span.
func bodyDecoder(k Kind) func(*Cursor) (Body, error) {
	if k.Family != FamilyTableDump {
		return nil
	}
	switch k.Subtype {
	case SubtypeAFIIPv4:
		return decodeTableDumpIPv4
	case SubtypeAFIIPv6:
		return decodeTableDumpIPv6
	}
	return nil
}
