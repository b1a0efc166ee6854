package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/route-beacon/mrt-ingester/internal/bgp"
	"github.com/route-beacon/mrt-ingester/internal/mrt"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: mrt-inspect [--limit N] [--attrs] [--hex] <dump>")
	os.Exit(2)
}

func main() {
	var (
		path      string
		limit     = -1
		showAttrs bool
		showHex   bool
	)
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--limit":
			if i+1 >= len(args) {
				usage()
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				usage()
			}
			limit = n
			i++
		case "--attrs":
			showAttrs = true
		case "--hex":
			showHex = true
		default:
			path = args[i]
		}
	}
	if path == "" {
		usage()
	}

	r, err := mrt.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	faulted := inspect(os.Stdout, r, options{limit: limit, attrs: showAttrs, hex: showHex})
	r.Close()
	if faulted {
		os.Exit(1)
	}
}

type options struct {
	limit int // records to print, -1 for all
	attrs bool
	hex   bool
}

// inspect prints the records of r and a per-kind summary to w. It reports
// whether the dump ended inside a record header.
func inspect(w io.Writer, r *mrt.Reader, opts options) (faulted bool) {
	fmt.Fprintf(w, "=== %s (%d bytes) ===\n", r.Path(), r.Size())

	kinds := map[string]int{}
	var records, printed, errs int
	for rec, err := range r.Stream().All() {
		if rec == nil {
			fmt.Fprintf(w, "\n!!! stream fault: %v\n", err)
			errs++
			faulted = true
			break
		}
		records++
		kinds[rec.Kind.String()]++
		if err != nil {
			errs++
		}

		if opts.limit >= 0 && printed >= opts.limit {
			continue
		}
		printed++
		printRecord(w, rec, r.Bytes(), err, opts)
	}

	fmt.Fprintf(w, "\nTotal records: %d (errors: %d)\n", records, errs)
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "  %-32s %d\n", k, kinds[k])
	}
	return faulted
}

func printRecord(w io.Writer, rec *mrt.Record, dump []byte, recErr error, opts options) {
	h := rec.Header
	fmt.Fprintf(w, "\n--- record at offset %d ---\n", rec.Offset)
	fmt.Fprintf(w, "  Time:   %s", h.Time().Format("2006-01-02 15:04:05.000000"))
	if h.Extended {
		fmt.Fprintf(w, " (ET, %dus)", h.Microseconds)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Kind:   %s (type=%d subtype=%d)\n", rec.Kind, h.Type, h.Subtype)
	fmt.Fprintf(w, "  Length: %d (body %d bytes present)\n", h.Length, len(rec.Raw))

	if recErr != nil {
		var re *mrt.RecordError
		if errors.As(recErr, &re) && re.Warning() {
			fmt.Fprintf(w, "  Warning: %v\n", recErr)
		} else {
			fmt.Fprintf(w, "  Error: %v\n", recErr)
		}
	}

	if td, ok := rec.TableDump(); ok {
		fmt.Fprintf(w, "  View:   %d seq=%d\n", td.ViewNumber, td.SequenceNumber)
		fmt.Fprintf(w, "  Prefix: %s status=%d originated=%s\n", td.Prefix(), td.Status, td.Originated().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  Peer:   %s AS%d\n", td.PeerAddr, td.PeerAS)
		fmt.Fprintf(w, "  Attrs:  %d bytes\n", td.AttrLength)
		if opts.attrs && len(td.Attributes) > 0 {
			printAttributes(w, td.Attributes)
		}
	}

	if opts.hex {
		b := rec.Bytes(dump)
		if len(b) > 64 {
			fmt.Fprintf(w, "  Hex[:64]: %s ...\n", hex.EncodeToString(b[:64]))
		} else {
			fmt.Fprintf(w, "  Hex:    %s\n", hex.EncodeToString(b))
		}
	}
}

func printAttributes(w io.Writer, data []byte) {
	attrs, err := bgp.ParsePathAttributes(data, bgp.ASSize2)
	if err != nil {
		fmt.Fprintf(w, "    ParsePathAttributes error: %v\n", err)
		if attrs == nil {
			return
		}
	}
	fmt.Fprintf(w, "    origin=%s as_path=%q nexthop=%s\n", attrs.Origin, attrs.ASPath, attrs.Nexthop)
	if attrs.MED != nil {
		fmt.Fprintf(w, "    med=%d\n", *attrs.MED)
	}
	if attrs.LocalPref != nil {
		fmt.Fprintf(w, "    local_pref=%d\n", *attrs.LocalPref)
	}
	if attrs.AtomicAggr || attrs.Aggregator != "" {
		fmt.Fprintf(w, "    atomic_aggregate=%v aggregator=%s\n", attrs.AtomicAggr, attrs.Aggregator)
	}
	if len(attrs.CommStd) > 0 {
		fmt.Fprintf(w, "    communities=%v\n", attrs.CommStd)
	}
	if len(attrs.CommExt) > 0 {
		fmt.Fprintf(w, "    ext_communities=%v\n", attrs.CommExt)
	}
	if len(attrs.CommLarge) > 0 {
		fmt.Fprintf(w, "    large_communities=%v\n", attrs.CommLarge)
	}
	for code, v := range attrs.Attrs {
		fmt.Fprintf(w, "    attr %s: %s\n", code, v)
	}
}
