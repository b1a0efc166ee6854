package mrt

import "fmt"

// MRT record type codes (RFC 6396, RFC 8050).
const (
	TypeOSPFv2      uint16 = 11
	TypeTableDump   uint16 = 12
	TypeTableDumpV2 uint16 = 13
	TypeBGP4MP      uint16 = 16
	TypeBGP4MPET    uint16 = 17
	TypeISIS        uint16 = 32
	TypeISISET      uint16 = 33
	TypeOSPFv3      uint16 = 48
	TypeOSPFv3ET    uint16 = 49
)

// TABLE_DUMP subtypes carry the address family of the entry.
const (
	SubtypeAFIIPv4 uint16 = 1
	SubtypeAFIIPv6 uint16 = 2
)

// TABLE_DUMP_V2 subtypes.
const (
	SubtypePeerIndexTable   uint16 = 1
	SubtypeRIBIPv4Unicast   uint16 = 2
	SubtypeRIBIPv4Multicast uint16 = 3
	SubtypeRIBIPv6Unicast   uint16 = 4
	SubtypeRIBIPv6Multicast uint16 = 5
	SubtypeRIBGeneric       uint16 = 6
)

// BGP4MP and BGP4MP_ET subtypes.
const (
	SubtypeStateChange     uint16 = 0
	SubtypeMessage         uint16 = 1
	SubtypeMessageAS4      uint16 = 4
	SubtypeStateChangeAS4  uint16 = 5
	SubtypeMessageLocal    uint16 = 6
	SubtypeMessageAS4Local uint16 = 7
)

// Family is the outer tag of a record kind.
type Family uint8

const (
	FamilyReserved Family = iota // type code not assigned
	FamilyUnknown                // type known, subtype not
	FamilyOSPFv2
	FamilyTableDump
	FamilyTableDumpV2
	FamilyBGP4MP
	FamilyBGP4MPET
	FamilyISIS
	FamilyISISET
	FamilyOSPFv3
	FamilyOSPFv3ET
)

var familyNames = map[Family]string{
	FamilyReserved:    "RESERVED",
	FamilyUnknown:     "UNKNOWN",
	FamilyOSPFv2:      "OSPFv2",
	FamilyTableDump:   "TABLE_DUMP",
	FamilyTableDumpV2: "TABLE_DUMP_V2",
	FamilyBGP4MP:      "BGP4MP",
	FamilyBGP4MPET:    "BGP4MP_ET",
	FamilyISIS:        "ISIS",
	FamilyISISET:      "ISIS_ET",
	FamilyOSPFv3:      "OSPFv3",
	FamilyOSPFv3ET:    "OSPFv3_ET",
}

func (f Family) String() string {
	if s, ok := familyNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

var tableDumpSubtypeNames = map[uint16]string{
	SubtypeAFIIPv4: "AFI_IPv4",
	SubtypeAFIIPv6: "AFI_IPv6",
}

var tableDumpV2SubtypeNames = map[uint16]string{
	SubtypePeerIndexTable:   "PEER_INDEX_TABLE",
	SubtypeRIBIPv4Unicast:   "RIB_IPV4_UNICAST",
	SubtypeRIBIPv4Multicast: "RIB_IPV4_MULTICAST",
	SubtypeRIBIPv6Unicast:   "RIB_IPV6_UNICAST",
	SubtypeRIBIPv6Multicast: "RIB_IPV6_MULTICAST",
	SubtypeRIBGeneric:       "RIB_GENERIC",
}

var bgp4mpSubtypeNames = map[uint16]string{
	SubtypeStateChange:     "STATE_CHANGE",
	SubtypeMessage:         "MESSAGE",
	SubtypeMessageAS4:      "MESSAGE_AS4",
	SubtypeStateChangeAS4:  "STATE_CHANGE_AS4",
	SubtypeMessageLocal:    "MESSAGE_LOCAL",
	SubtypeMessageAS4Local: "MESSAGE_AS4_LOCAL",
}

// Kind classifies a record by its (type, subtype) pair. The raw codes are
// kept so that Unknown and Reserved kinds still carry what was on the wire.
type Kind struct {
	Family  Family
	Type    uint16
	Subtype uint16
}

// Classify maps a (type, subtype) pair to a Kind. It is total: unassigned
// type codes give FamilyReserved and unassigned subtypes of a known type give
// FamilyUnknown.
func Classify(typ, subtype uint16) Kind {
	k := Kind{Type: typ, Subtype: subtype}
	switch typ {
	case TypeOSPFv2:
		k.Family = FamilyOSPFv2
	case TypeTableDump:
		k.Family = withSubtype(FamilyTableDump, subtype, tableDumpSubtypeNames)
	case TypeTableDumpV2:
		k.Family = withSubtype(FamilyTableDumpV2, subtype, tableDumpV2SubtypeNames)
	case TypeBGP4MP:
		k.Family = withSubtype(FamilyBGP4MP, subtype, bgp4mpSubtypeNames)
	case TypeBGP4MPET:
		k.Family = withSubtype(FamilyBGP4MPET, subtype, bgp4mpSubtypeNames)
	case TypeISIS:
		k.Family = FamilyISIS
	case TypeISISET:
		k.Family = FamilyISISET
	case TypeOSPFv3:
		k.Family = FamilyOSPFv3
	case TypeOSPFv3ET:
		k.Family = FamilyOSPFv3ET
	default:
		k.Family = FamilyReserved
	}
	return k
}

func withSubtype(f Family, subtype uint16, known map[uint16]string) Family {
	if _, ok := known[subtype]; ok {
		return f
	}
	return FamilyUnknown
}

// Extended reports whether records of this kind carry the 4-byte microsecond
// timestamp after the common header.
func (k Kind) Extended() bool {
	switch k.Family {
	case FamilyBGP4MPET, FamilyISISET, FamilyOSPFv3ET:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k.Family {
	case FamilyReserved:
		return fmt.Sprintf("RESERVED(%d)", k.Type)
	case FamilyUnknown:
		return fmt.Sprintf("UNKNOWN(%d,%d)", k.Type, k.Subtype)
	case FamilyTableDump:
		return k.Family.String() + "/" + tableDumpSubtypeNames[k.Subtype]
	case FamilyTableDumpV2:
		return k.Family.String() + "/" + tableDumpV2SubtypeNames[k.Subtype]
	case FamilyBGP4MP, FamilyBGP4MPET:
		return k.Family.String() + "/" + bgp4mpSubtypeNames[k.Subtype]
	default:
		return k.Family.String()
	}
}
