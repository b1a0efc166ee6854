package store

import (
	"bytes"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/mrt-ingester/internal/bgp"
	"github.com/route-beacon/mrt-ingester/internal/ingest"
)

func testEntry() *ingest.Entry {
	med := uint32(50)
	return &ingest.Entry{
		EntryID:        bytes.Repeat([]byte{0xAB}, 32),
		Source:         "rib.20021022.1200",
		RecordTime:     time.Unix(1035288000, 0).UTC(),
		Kind:           "TABLE_DUMP/AFI_IPv4",
		AFI:            4,
		Prefix:         "10.0.0.0/8",
		ViewNumber:     0,
		SequenceNumber: 7,
		OriginatedAt:   time.Unix(1027380000, 0).UTC(),
		PeerIP:         "192.0.2.1",
		PeerAS:         64496,
		RawAttributes:  []byte{0x40, 0x01, 0x01, 0x00},
		Attrs: &bgp.PathAttributes{
			Origin:  "IGP",
			ASPath:  "64496 3356",
			Nexthop: "192.0.2.1",
			MED:     &med,
			CommStd: []string{"64496:100"},
		},
	}
}

func TestEntryArgs_PlaceholderCount(t *testing.T) {
	w := NewWriter(nil, nil, true, false)
	args := w.entryArgs(testEntry())
	if len(args) != 22 {
		t.Fatalf("expected 22 args, got %d", len(args))
	}
}

func TestEntryArgs_Attributes(t *testing.T) {
	w := NewWriter(nil, nil, false, false)
	args := w.entryArgs(testEntry())

	if args[5] != "10.0.0.0/8" {
		t.Errorf("prefix = %v", args[5])
	}
	if args[10] != int64(64496) {
		t.Errorf("peer_as = %v", args[10])
	}
	if args[11] != "IGP" || args[12] != "64496 3356" {
		t.Errorf("origin/as_path = %v %v", args[11], args[12])
	}
	if args[13] != int64(3356) {
		t.Errorf("origin_as = %v, want 3356", args[13])
	}
	if args[15] != int64(50) {
		t.Errorf("med = %v", args[15])
	}
	if args[16] != nil {
		t.Errorf("localpref should be NULL, got %v", args[16])
	}
	if raw := args[21].([]byte); raw != nil {
		t.Errorf("raw attributes stored although disabled: %x", raw)
	}
}

func TestEntryArgs_NoAttributes(t *testing.T) {
	e := testEntry()
	e.Attrs = nil
	args := NewWriter(nil, nil, false, false).entryArgs(e)
	for i := 11; i <= 16; i++ {
		if args[i] != nil {
			t.Errorf("arg %d should be NULL without decoded attributes, got %v", i, args[i])
		}
	}
}

func TestEntryArgs_RawCopied(t *testing.T) {
	e := testEntry()
	args := NewWriter(nil, nil, true, false).entryArgs(e)
	raw := args[21].([]byte)
	if !bytes.Equal(raw, e.RawAttributes) {
		t.Fatalf("raw = %x", raw)
	}
	e.RawAttributes[0] = 0xFF
	if raw[0] == 0xFF {
		t.Error("raw attributes must not alias the dump")
	}
}

func TestEntryArgs_RawCompressed(t *testing.T) {
	e := testEntry()
	args := NewWriter(nil, nil, true, true).entryArgs(e)

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(args[21].([]byte), nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(plain, e.RawAttributes) {
		t.Errorf("round trip = %x, want %x", plain, e.RawAttributes)
	}
}

func TestDumpArgs(t *testing.T) {
	run := DumpRun{
		Source:    "rib.bz",
		SizeBytes: 1024,
		Stats:     ingest.Stats{Records: 10, Entries: 8, Faulted: true},
	}
	args := dumpArgs(run)
	if len(args) != 11 {
		t.Fatalf("expected 11 args, got %d", len(args))
	}
	if args[1] != nil {
		t.Errorf("empty path should be NULL")
	}
	if args[2] != int64(1024) || args[3] != int64(10) || args[8] != true {
		t.Errorf("unexpected args %v", args)
	}
}
