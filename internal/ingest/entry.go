package ingest

import (
	"time"

	"github.com/route-beacon/mrt-ingester/internal/bgp"
	"github.com/route-beacon/mrt-ingester/internal/mrt"
)

// Entry is one TABLE_DUMP RIB entry handed to the sinks.
type Entry struct {
	EntryID        []byte
	Source         string // dump file the entry came from
	RecordTime     time.Time
	Kind           string
	AFI            int // 4 or 6
	Prefix         string
	ViewNumber     uint16
	SequenceNumber uint16
	OriginatedAt   time.Time
	PeerIP         string
	PeerAS         uint32
	RawAttributes  []byte              // aliases the dump region until the batch is flushed
	Attrs          *bgp.PathAttributes // nil unless attribute decoding is enabled
}

func newEntry(source string, rec *mrt.Record, td *mrt.TableDumpEntry, recordBytes []byte) *Entry {
	afi := 4
	if td.PrefixAddr.Is6() {
		afi = 6
	}
	return &Entry{
		EntryID:        ComputeEntryID(recordBytes),
		Source:         source,
		RecordTime:     rec.Header.Time(),
		Kind:           rec.Kind.String(),
		AFI:            afi,
		Prefix:         td.Prefix().String(),
		ViewNumber:     td.ViewNumber,
		SequenceNumber: td.SequenceNumber,
		OriginatedAt:   td.Originated(),
		PeerIP:         td.PeerAddr.String(),
		PeerAS:         uint32(td.PeerAS),
		RawAttributes:  td.Attributes,
	}
}
