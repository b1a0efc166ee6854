package bgp

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// PathAttributes holds parsed BGP path attributes of one RIB entry.
type PathAttributes struct {
	Origin     string
	ASPath     string
	Nexthop    string
	MED        *uint32
	LocalPref  *uint32
	AtomicAggr bool
	Aggregator string
	CommStd    []string
	CommExt    []string
	CommLarge  []string
	Attrs      map[string]string // Unknown attributes keyed by type code

	// MP_REACH_NLRI next hop, when present.
	MPReachAFI     uint16
	MPReachNexthop string
}

// ParsePathAttributes parses a BGP path attribute block. asSize is the width
// of AS numbers in AS_PATH and AGGREGATOR (ASSize2 or ASSize4). When a 2-octet
// AS_PATH carries AS_TRANS and an AS4_PATH is present, the AS4_PATH wins.
func ParsePathAttributes(data []byte, asSize int) (*PathAttributes, error) {
	if asSize != ASSize2 && asSize != ASSize4 {
		return nil, fmt.Errorf("bgp: unsupported AS size %d", asSize)
	}
	attrs := &PathAttributes{
		Attrs: make(map[string]string),
	}
	var as4Path string

	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return attrs, fmt.Errorf("bgp: attr header truncated at offset %d", offset)
		}

		flags := data[offset]
		typeCode := data[offset+1]
		offset += 2

		var attrLen int
		if flags&AttrFlagExtendedLength != 0 {
			if offset+2 > len(data) {
				return attrs, fmt.Errorf("bgp: extended attr length truncated")
			}
			attrLen = int(binary.BigEndian.Uint16(data[offset : offset+2]))
			offset += 2
		} else {
			if offset+1 > len(data) {
				return attrs, fmt.Errorf("bgp: attr length truncated")
			}
			attrLen = int(data[offset])
			offset++
		}

		if offset+attrLen > len(data) {
			return attrs, fmt.Errorf("bgp: attr data truncated (type %d, need %d, have %d)", typeCode, attrLen, len(data)-offset)
		}

		attrData := data[offset : offset+attrLen]
		offset += attrLen

		switch typeCode {
		case AttrTypeOrigin:
			parseOrigin(attrData, attrs)
		case AttrTypeASPath:
			attrs.ASPath = formatASPath(attrData, asSize)
		case AttrTypeAS4Path:
			as4Path = formatASPath(attrData, ASSize4)
		case AttrTypeNextHop:
			if len(attrData) == 4 {
				attrs.Nexthop = netip.AddrFrom4([4]byte(attrData)).String()
			}
		case AttrTypeMED:
			attrs.MED = parseUint32(attrData)
		case AttrTypeLocalPref:
			attrs.LocalPref = parseUint32(attrData)
		case AttrTypeAtomicAggr:
			attrs.AtomicAggr = true
		case AttrTypeAggregator:
			parseAggregator(attrData, asSize, attrs)
		case AttrTypeCommunity:
			parseCommunity(attrData, attrs)
		case AttrTypeMPReachNLRI:
			parseMPReachNexthop(attrData, attrs)
		case AttrTypeExtCommunity:
			parseExtCommunity(attrData, attrs)
		case AttrTypeLargeCommunity:
			parseLargeCommunity(attrData, attrs)
		default:
			attrs.Attrs[fmt.Sprintf("%d", typeCode)] = hex.EncodeToString(attrData)
		}
	}

	if as4Path != "" && strings.Contains(" "+attrs.ASPath+" ", fmt.Sprintf(" %d ", ASTrans)) {
		attrs.ASPath = as4Path
	}
	return attrs, nil
}

func parseOrigin(data []byte, attrs *PathAttributes) {
	if len(data) < 1 {
		return
	}
	if v, ok := OriginValues[data[0]]; ok {
		attrs.Origin = v
	} else {
		attrs.Origin = fmt.Sprintf("UNKNOWN(%d)", data[0])
	}
}

func readAS(data []byte, asSize int) uint32 {
	if asSize == ASSize2 {
		return uint32(binary.BigEndian.Uint16(data))
	}
	return binary.BigEndian.Uint32(data)
}

func formatASPath(data []byte, asSize int) string {
	var segments []string
	offset := 0
	for offset+2 <= len(data) {
		segType := data[offset]
		segLen := int(data[offset+1])
		offset += 2

		if offset+segLen*asSize > len(data) {
			break
		}

		asns := make([]string, segLen)
		for i := 0; i < segLen; i++ {
			asns[i] = fmt.Sprintf("%d", readAS(data[offset:], asSize))
			offset += asSize
		}

		switch segType {
		case ASPathSegmentSequence:
			segments = append(segments, strings.Join(asns, " "))
		case ASPathSegmentSet:
			segments = append(segments, "{"+strings.Join(asns, ",")+"}")
		}
	}
	return strings.Join(segments, " ")
}

func parseUint32(data []byte) *uint32 {
	if len(data) != 4 {
		return nil
	}
	v := binary.BigEndian.Uint32(data)
	return &v
}

func parseAggregator(data []byte, asSize int, attrs *PathAttributes) {
	if len(data) != asSize+4 {
		return
	}
	asn := readAS(data, asSize)
	addr := netip.AddrFrom4([4]byte(data[asSize:]))
	attrs.Aggregator = fmt.Sprintf("%d:%s", asn, addr)
}

func parseCommunity(data []byte, attrs *PathAttributes) {
	for i := 0; i+4 <= len(data); i += 4 {
		hi := binary.BigEndian.Uint16(data[i : i+2])
		lo := binary.BigEndian.Uint16(data[i+2 : i+4])
		attrs.CommStd = append(attrs.CommStd, fmt.Sprintf("%d:%d", hi, lo))
	}
}

func parseExtCommunity(data []byte, attrs *PathAttributes) {
	for i := 0; i+8 <= len(data); i += 8 {
		attrs.CommExt = append(attrs.CommExt, decodeExtCommunity(data[i:i+8]))
	}
}

// decodeExtCommunity renders one 8-byte extended community. Route Target
// (subtype 0x02) and Route Origin (0x03) are named for the 2-octet AS, IPv4
// and 4-octet AS types; anything else is hex.
func decodeExtCommunity(data []byte) string {
	typeLow := data[1]

	switch data[0] & 0x3F {
	case 0x00: // 2-Octet AS Specific
		asn := binary.BigEndian.Uint16(data[2:4])
		val := binary.BigEndian.Uint32(data[4:8])
		if name := extSubtypeName(typeLow); name != "" {
			return fmt.Sprintf("%s:%d:%d", name, asn, val)
		}
	case 0x01: // IPv4 Address Specific
		ip := netip.AddrFrom4([4]byte(data[2:6]))
		val := binary.BigEndian.Uint16(data[6:8])
		if name := extSubtypeName(typeLow); name != "" {
			return fmt.Sprintf("%s:%s:%d", name, ip, val)
		}
	case 0x02: // 4-Octet AS Specific
		asn := binary.BigEndian.Uint32(data[2:6])
		val := binary.BigEndian.Uint16(data[6:8])
		if name := extSubtypeName(typeLow); name != "" {
			return fmt.Sprintf("%s:%d:%d", name, asn, val)
		}
	}

	return hex.EncodeToString(data)
}

func extSubtypeName(subtype uint8) string {
	switch subtype {
	case 0x02:
		return "RT"
	case 0x03:
		return "SOO"
	}
	return ""
}

func parseLargeCommunity(data []byte, attrs *PathAttributes) {
	for i := 0; i+12 <= len(data); i += 12 {
		global := binary.BigEndian.Uint32(data[i : i+4])
		data1 := binary.BigEndian.Uint32(data[i+4 : i+8])
		data2 := binary.BigEndian.Uint32(data[i+8 : i+12])
		attrs.CommLarge = append(attrs.CommLarge, fmt.Sprintf("%d:%d:%d", global, data1, data2))
	}
}

// parseMPReachNexthop extracts the next hop of MP_REACH_NLRI. The NLRI that
// follows is ignored: a RIB entry's prefix is carried by the entry itself.
func parseMPReachNexthop(data []byte, attrs *PathAttributes) {
	if len(data) < 4 {
		return
	}
	afi := binary.BigEndian.Uint16(data[0:2])
	nhLen := int(data[3])
	if 4+nhLen > len(data) {
		return
	}
	attrs.MPReachAFI = afi

	nh := data[4 : 4+nhLen]
	switch nhLen {
	case 4:
		attrs.MPReachNexthop = netip.AddrFrom4([4]byte(nh)).String()
	case 16, 32:
		// Global + link-local; use global.
		attrs.MPReachNexthop = netip.AddrFrom16([16]byte(nh[:16])).String()
	}
	if attrs.Nexthop == "" {
		attrs.Nexthop = attrs.MPReachNexthop
	}
}

// OriginASN extracts the origin AS number (last ASN) from a space-delimited
// AS path string. Returns nil if the path is empty or ends with an AS_SET
// (e.g. "{64497,64498}").
func OriginASN(asPath string) *int {
	asPath = strings.TrimSpace(asPath)
	if asPath == "" {
		return nil
	}

	fields := strings.Fields(asPath)
	last := fields[len(fields)-1]

	if strings.HasPrefix(last, "{") {
		return nil
	}

	var asn int
	_, err := fmt.Sscanf(last, "%d", &asn)
	if err != nil {
		return nil
	}
	return &asn
}
