package mrt

import "encoding/binary"

// buildRecord constructs an MRT record with a common header declaring
// len(body) bytes.
func buildRecord(ts uint32, typ, subtype uint16, body []byte) []byte {
	return buildRecordLen(ts, typ, subtype, uint32(len(body)), body)
}

// buildRecordLen lets the declared length disagree with the body.
func buildRecordLen(ts uint32, typ, subtype uint16, length uint32, body []byte) []byte {
	rec := make([]byte, CommonHeaderSize+len(body))
	binary.BigEndian.PutUint32(rec[0:4], ts)
	binary.BigEndian.PutUint16(rec[4:6], typ)
	binary.BigEndian.PutUint16(rec[6:8], subtype)
	binary.BigEndian.PutUint32(rec[8:12], length)
	copy(rec[12:], body)
	return rec
}

// buildExtendedRecord constructs a record carrying the microsecond field.
func buildExtendedRecord(ts uint32, typ, subtype uint16, micro uint32, body []byte) []byte {
	rec := make([]byte, ExtendedHeaderSize+len(body))
	binary.BigEndian.PutUint32(rec[0:4], ts)
	binary.BigEndian.PutUint16(rec[4:6], typ)
	binary.BigEndian.PutUint16(rec[6:8], subtype)
	binary.BigEndian.PutUint32(rec[8:12], uint32(len(body)))
	binary.BigEndian.PutUint32(rec[12:16], micro)
	copy(rec[16:], body)
	return rec
}

// tableDumpV4 describes a TABLE_DUMP AFI_IPv4 body.
type tableDumpV4 struct {
	view, seq  uint16
	prefix     [4]byte
	prefixLen  uint8
	status     uint8
	originated uint32
	peer       [4]byte
	peerAS     uint16
	attrs      []byte
}

func (td tableDumpV4) bytes() []byte {
	b := make([]byte, 22+len(td.attrs))
	binary.BigEndian.PutUint16(b[0:2], td.view)
	binary.BigEndian.PutUint16(b[2:4], td.seq)
	copy(b[4:8], td.prefix[:])
	b[8] = td.prefixLen
	b[9] = td.status
	binary.BigEndian.PutUint32(b[10:14], td.originated)
	copy(b[14:18], td.peer[:])
	binary.BigEndian.PutUint16(b[18:20], td.peerAS)
	binary.BigEndian.PutUint16(b[20:22], uint16(len(td.attrs)))
	copy(b[22:], td.attrs)
	return b
}

func validTableDump(seq uint16, attrs []byte) tableDumpV4 {
	return tableDumpV4{
		view:       0,
		seq:        seq,
		prefix:     [4]byte{10, 0, 0, 0},
		prefixLen:  8,
		status:     1,
		originated: 1027380000,
		peer:       [4]byte{192, 0, 2, 1},
		peerAS:     64496,
		attrs:      attrs,
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
