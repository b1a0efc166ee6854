package bgp

import (
	"encoding/binary"
	"testing"
)

// buildPathAttr constructs a single path attribute.
func buildPathAttr(flags byte, typeCode byte, data []byte) []byte {
	if len(data) > 255 {
		attr := make([]byte, 4+len(data))
		attr[0] = flags | AttrFlagExtendedLength
		attr[1] = typeCode
		binary.BigEndian.PutUint16(attr[2:4], uint16(len(data)))
		copy(attr[4:], data)
		return attr
	}
	attr := make([]byte, 3+len(data))
	attr[0] = flags
	attr[1] = typeCode
	attr[2] = byte(len(data))
	copy(attr[3:], data)
	return attr
}

func asPath2(segType byte, asns ...uint16) []byte {
	b := []byte{segType, byte(len(asns))}
	for _, a := range asns {
		b = binary.BigEndian.AppendUint16(b, a)
	}
	return b
}

func asPath4(segType byte, asns ...uint32) []byte {
	b := []byte{segType, byte(len(asns))}
	for _, a := range asns {
		b = binary.BigEndian.AppendUint32(b, a)
	}
	return b
}

func TestParsePathAttributes_TwoOctetASPath(t *testing.T) {
	var data []byte
	data = append(data, buildPathAttr(0x40, AttrTypeOrigin, []byte{0})...)
	data = append(data, buildPathAttr(0x40, AttrTypeASPath, asPath2(ASPathSegmentSequence, 64496, 64497, 3356))...)
	data = append(data, buildPathAttr(0x40, AttrTypeNextHop, []byte{192, 0, 2, 1})...)

	attrs, err := ParsePathAttributes(data, ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.Origin != "IGP" {
		t.Errorf("expected origin 'IGP', got '%s'", attrs.Origin)
	}
	if attrs.ASPath != "64496 64497 3356" {
		t.Errorf("expected AS path '64496 64497 3356', got '%s'", attrs.ASPath)
	}
	if attrs.Nexthop != "192.0.2.1" {
		t.Errorf("expected nexthop '192.0.2.1', got '%s'", attrs.Nexthop)
	}
	if asn := OriginASN(attrs.ASPath); asn == nil || *asn != 3356 {
		t.Errorf("expected origin ASN 3356, got %v", asn)
	}
}

func TestParsePathAttributes_FourOctetASPathWithSet(t *testing.T) {
	path := append(asPath4(ASPathSegmentSequence, 4200000000), asPath4(ASPathSegmentSet, 64497, 64498)...)
	data := buildPathAttr(0x40, AttrTypeASPath, path)

	attrs, err := ParsePathAttributes(data, ASSize4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.ASPath != "4200000000 {64497,64498}" {
		t.Errorf("unexpected AS path '%s'", attrs.ASPath)
	}
	if OriginASN(attrs.ASPath) != nil {
		t.Error("expected nil origin ASN for trailing AS_SET")
	}
}

func TestParsePathAttributes_AS4PathReplacesASTrans(t *testing.T) {
	var data []byte
	data = append(data, buildPathAttr(0x40, AttrTypeASPath, asPath2(ASPathSegmentSequence, 64496, uint16(ASTrans)))...)
	data = append(data, buildPathAttr(0xC0, AttrTypeAS4Path, asPath4(ASPathSegmentSequence, 64496, 4200000001))...)

	attrs, err := ParsePathAttributes(data, ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.ASPath != "64496 4200000001" {
		t.Errorf("expected AS4_PATH to win, got '%s'", attrs.ASPath)
	}
}

func TestParsePathAttributes_AS4PathIgnoredWithoutASTrans(t *testing.T) {
	var data []byte
	data = append(data, buildPathAttr(0x40, AttrTypeASPath, asPath2(ASPathSegmentSequence, 64496))...)
	data = append(data, buildPathAttr(0xC0, AttrTypeAS4Path, asPath4(ASPathSegmentSequence, 1))...)

	attrs, _ := ParsePathAttributes(data, ASSize2)
	if attrs.ASPath != "64496" {
		t.Errorf("expected AS_PATH to be kept, got '%s'", attrs.ASPath)
	}
}

func TestParsePathAttributes_MEDLocalPrefAggregator(t *testing.T) {
	var data []byte
	data = append(data, buildPathAttr(0x80, AttrTypeMED, []byte{0, 0, 0, 50})...)
	data = append(data, buildPathAttr(0x40, AttrTypeLocalPref, []byte{0, 0, 0, 100})...)
	data = append(data, buildPathAttr(0x40, AttrTypeAtomicAggr, nil)...)
	data = append(data, buildPathAttr(0xC0, AttrTypeAggregator, []byte{0xFB, 0xF0, 198, 51, 100, 7})...)

	attrs, err := ParsePathAttributes(data, ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.MED == nil || *attrs.MED != 50 {
		t.Errorf("expected MED 50, got %v", attrs.MED)
	}
	if attrs.LocalPref == nil || *attrs.LocalPref != 100 {
		t.Errorf("expected local pref 100, got %v", attrs.LocalPref)
	}
	if !attrs.AtomicAggr {
		t.Error("expected atomic aggregate")
	}
	if attrs.Aggregator != "64496:198.51.100.7" {
		t.Errorf("unexpected aggregator '%s'", attrs.Aggregator)
	}
}

func TestParsePathAttributes_Communities(t *testing.T) {
	var data []byte
	data = append(data, buildPathAttr(0xC0, AttrTypeCommunity, []byte{0xFB, 0xF0, 0x00, 0x64, 0xFF, 0xFF, 0xFF, 0x01})...)
	data = append(data, buildPathAttr(0xC0, AttrTypeExtCommunity, []byte{0x00, 0x02, 0xFB, 0xF0, 0, 0, 0, 7, 0x80, 0x06, 1, 2, 3, 4, 5, 6})...)
	data = append(data, buildPathAttr(0xC0, AttrTypeLargeCommunity, []byte{0, 0, 0xFB, 0xF0, 0, 0, 0, 1, 0, 0, 0, 2})...)

	attrs, err := ParsePathAttributes(data, ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attrs.CommStd) != 2 || attrs.CommStd[0] != "64496:100" || attrs.CommStd[1] != "65535:65281" {
		t.Errorf("unexpected standard communities %v", attrs.CommStd)
	}
	if len(attrs.CommExt) != 2 || attrs.CommExt[0] != "RT:64496:7" || attrs.CommExt[1] != "8006010203040506" {
		t.Errorf("unexpected extended communities %v", attrs.CommExt)
	}
	if len(attrs.CommLarge) != 1 || attrs.CommLarge[0] != "64496:1:2" {
		t.Errorf("unexpected large communities %v", attrs.CommLarge)
	}
}

func TestParsePathAttributes_MPReachNexthop(t *testing.T) {
	mp := []byte{0x00, 0x02, 0x01, 16}
	mp = append(mp, 0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1)
	mp = append(mp, 0)                          // SNPA count
	mp = append(mp, 32, 0x20, 0x01, 0x0d, 0xb8) // NLRI, ignored

	attrs, err := ParsePathAttributes(buildPathAttr(0x80, AttrTypeMPReachNLRI, mp), ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.MPReachAFI != AFIIPv6 {
		t.Errorf("expected AFI 2, got %d", attrs.MPReachAFI)
	}
	if attrs.Nexthop != "2001:db8::1" {
		t.Errorf("expected nexthop '2001:db8::1', got '%s'", attrs.Nexthop)
	}
}

func TestParsePathAttributes_UnknownAttribute(t *testing.T) {
	attrs, err := ParsePathAttributes(buildPathAttr(0xC0, 99, []byte{0xDE, 0xAD}), ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attrs.Attrs["99"] != "dead" {
		t.Errorf("expected unknown attr 99 = 'dead', got %v", attrs.Attrs)
	}
}

func TestParsePathAttributes_ExtendedLength(t *testing.T) {
	comms := make([]byte, 400)
	attrs, err := ParsePathAttributes(buildPathAttr(0xC0, AttrTypeCommunity, comms), ASSize2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attrs.CommStd) != 100 {
		t.Errorf("expected 100 communities, got %d", len(attrs.CommStd))
	}
}

func TestParsePathAttributes_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"header", []byte{0x40}},
		{"length", []byte{0x40, AttrTypeOrigin}},
		{"extended length", []byte{0x50, AttrTypeOrigin, 0x00}},
		{"data", []byte{0x40, AttrTypeASPath, 10, 2, 1}},
	}
	for _, tt := range tests {
		if _, err := ParsePathAttributes(tt.data, ASSize2); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestParsePathAttributes_BadASSize(t *testing.T) {
	if _, err := ParsePathAttributes(nil, 3); err == nil {
		t.Fatal("expected error for AS size 3")
	}
}
