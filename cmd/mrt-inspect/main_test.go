package main

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/route-beacon/mrt-ingester/internal/mrt"
)

func tableDumpRecord(ts uint32) []byte {
	body := make([]byte, 22)
	copy(body[4:8], []byte{10, 0, 0, 0})
	body[8] = 8
	body[9] = 1
	copy(body[14:18], []byte{192, 0, 2, 1})
	binary.BigEndian.PutUint16(body[18:20], 64496)

	rec := make([]byte, mrt.CommonHeaderSize+len(body))
	binary.BigEndian.PutUint32(rec[0:4], ts)
	binary.BigEndian.PutUint16(rec[4:6], mrt.TypeTableDump)
	binary.BigEndian.PutUint16(rec[6:8], mrt.SubtypeAFIIPv4)
	binary.BigEndian.PutUint32(rec[8:12], uint32(len(body)))
	copy(rec[12:], body)
	return rec
}

func TestInspect_CleanDump(t *testing.T) {
	dump := append(tableDumpRecord(1), tableDumpRecord(2)...)
	var out bytes.Buffer

	if inspect(&out, mrt.NewReader(dump), options{limit: -1}) {
		t.Fatal("clean dump reported as faulted")
	}
	if !strings.Contains(out.String(), "Total records: 2 (errors: 0)") {
		t.Errorf("unexpected summary:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Prefix: 10.0.0.0/8") {
		t.Errorf("record not printed:\n%s", out.String())
	}
}

func TestInspect_TruncatedHeaderFaults(t *testing.T) {
	dump := append(tableDumpRecord(1), 0x00, 0x00, 0x01)
	var out bytes.Buffer

	if !inspect(&out, mrt.NewReader(dump), options{limit: 0}) {
		t.Fatal("dump ending inside a header must be reported as faulted")
	}
	if !strings.Contains(out.String(), "stream fault") {
		t.Errorf("fault not printed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Total records: 1 (errors: 1)") {
		t.Errorf("summary should still be printed:\n%s", out.String())
	}
	if strings.Contains(out.String(), "--- record at offset") {
		t.Errorf("limit 0 should print no records:\n%s", out.String())
	}
}
