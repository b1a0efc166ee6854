package bgp

// BGP path attribute type codes.
const (
	AttrTypeOrigin         uint8 = 1
	AttrTypeASPath         uint8 = 2
	AttrTypeNextHop        uint8 = 3
	AttrTypeMED            uint8 = 4
	AttrTypeLocalPref      uint8 = 5
	AttrTypeAtomicAggr     uint8 = 6
	AttrTypeAggregator     uint8 = 7
	AttrTypeCommunity      uint8 = 8
	AttrTypeMPReachNLRI    uint8 = 14
	AttrTypeExtCommunity   uint8 = 16
	AttrTypeAS4Path        uint8 = 17
	AttrTypeLargeCommunity uint8 = 32
)

// AFI codes.
const (
	AFIIPv4 uint16 = 1
	AFIIPv6 uint16 = 2
)

// AS_PATH segment types.
const (
	ASPathSegmentSet      uint8 = 1
	ASPathSegmentSequence uint8 = 2
)

// AS number widths inside AS_PATH. TABLE_DUMP and the non-AS4 BGP4MP
// subtypes use 2-octet AS numbers; AS4_PATH is always 4 octets.
const (
	ASSize2 = 2
	ASSize4 = 4
)

// ASTrans is the 2-octet placeholder for 4-octet AS numbers (RFC 6793).
const ASTrans uint32 = 23456

// Attribute flag bits.
const (
	AttrFlagExtendedLength uint8 = 0x10
)

// Origin values.
var OriginValues = map[uint8]string{
	0: "IGP",
	1: "EGP",
	2: "INCOMPLETE",
}
