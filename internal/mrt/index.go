package mrt

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// IndexEntry locates one record found by Scan.
type IndexEntry struct {
	Offset int
	Header Header
	Kind   Kind
}

// Result pairs a record decoded by DecodeIndexed with its per-record error.
type Result struct {
	Record *Record
	Err    error
}

// Scan is the sequential first pass over a dump: it reads only headers and
// uses each declared length to find the next one. The returned error wraps
// ErrTruncatedHeader if the dump ends inside a header; entries found before
// the fault are still returned.
func Scan(buf []byte) ([]IndexEntry, error) {
	c := NewCursor(buf)
	var entries []IndexEntry
	for c.Remaining() > 0 {
		offset := c.Offset()
		h, kind, err := decodeHeader(c)
		if err != nil {
			return entries, fmt.Errorf("%w at offset %d: %w", ErrTruncatedHeader, offset, err)
		}
		entries = append(entries, IndexEntry{Offset: offset, Header: h, Kind: kind})
		if _, err := c.Take(int(h.Length)); err != nil {
			// The last body is short; DecodeIndexed reports it.
			break
		}
	}
	return entries, nil
}

// DecodeIndexed decodes the bodies of entries concurrently with at most
// workers goroutines. Results are in the order of entries and match what a
// Stream yields for the same records. buf must be the region entries were
// scanned from; it is only read.
func DecodeIndexed(ctx context.Context, buf []byte, entries []IndexEntry, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := e.Offset + e.Header.Size()
			if start > len(buf) {
				return fmt.Errorf("mrt: index entry at offset %d outside dump of %d bytes", e.Offset, len(buf))
			}
			rec, err := readBody(NewCursor(buf[start:]), e.Offset, e.Header, e.Kind)
			results[i] = Result{Record: rec, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
