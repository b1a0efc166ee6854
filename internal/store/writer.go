package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/mrt-ingester/internal/bgp"
	"github.com/route-beacon/mrt-ingester/internal/ingest"
	"github.com/route-beacon/mrt-ingester/internal/metrics"
	"go.uber.org/zap"
)

var zstdEncoder, _ = zstd.NewWriter(nil)

const insertEntrySQL = `
INSERT INTO mrt_rib_entries (entry_id, record_time, source, kind, afi, prefix,
	view_number, sequence_number, originated_at, peer_ip, peer_as,
	origin, as_path, origin_as, nexthop, med, localpref,
	communities_std, communities_ext, communities_large, attrs, raw_attributes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
ON CONFLICT (entry_id, record_time) DO NOTHING`

// Writer stores RIB entries in mrt_rib_entries.
type Writer struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	storeRaw    bool
	compressRaw bool
}

func NewWriter(pool *pgxpool.Pool, logger *zap.Logger, storeRaw, compressRaw bool) *Writer {
	return &Writer{
		pool:        pool,
		logger:      logger,
		storeRaw:    storeRaw,
		compressRaw: compressRaw,
	}
}

func (w *Writer) Name() string { return "postgres" }

// FlushBatch inserts a batch of entries in one transaction.
// Returns the number of rows actually inserted (after dedup).
func (w *Writer) FlushBatch(ctx context.Context, entries []*ingest.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var totalInserted int64
	for _, e := range entries {
		tag, err := tx.Exec(ctx, insertEntrySQL, w.entryArgs(e)...)
		if err != nil {
			return 0, fmt.Errorf("insert rib entry %s: %w", e.Prefix, err)
		}

		affected := tag.RowsAffected()
		totalInserted += affected
		if affected == 0 {
			metrics.DedupConflictsTotal.Inc()
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	metrics.DBWriteDuration.WithLabelValues("insert").Observe(time.Since(start).Seconds())
	metrics.DBRowsAffectedTotal.WithLabelValues("mrt_rib_entries", "insert").Add(float64(totalInserted))

	return totalInserted, nil
}

// entryArgs returns the insertEntrySQL parameters for e.
func (w *Writer) entryArgs(e *ingest.Entry) []any {
	var (
		origin, asPath, nexthop any
		originAS, med, lp       any
		commStd, commExt, commL []string
		attrsJSON               []byte
	)
	if a := e.Attrs; a != nil {
		origin = nilIfEmpty(a.Origin)
		asPath = nilIfEmpty(a.ASPath)
		nexthop = nilIfEmpty(a.Nexthop)
		if asn := bgp.OriginASN(a.ASPath); asn != nil {
			originAS = int64(*asn)
		}
		if a.MED != nil {
			med = int64(*a.MED)
		}
		if a.LocalPref != nil {
			lp = int64(*a.LocalPref)
		}
		commStd, commExt, commL = a.CommStd, a.CommExt, a.CommLarge
		if len(a.Attrs) > 0 {
			attrsJSON, _ = json.Marshal(a.Attrs)
		}
	}

	var raw []byte
	if w.storeRaw && len(e.RawAttributes) > 0 {
		if w.compressRaw {
			raw = zstdEncoder.EncodeAll(e.RawAttributes, nil)
		} else {
			// The entry aliases the dump mapping, which is gone after the import.
			raw = append([]byte(nil), e.RawAttributes...)
		}
	}

	return []any{
		e.EntryID, e.RecordTime, e.Source, e.Kind, e.AFI, e.Prefix,
		int32(e.ViewNumber), int32(e.SequenceNumber), e.OriginatedAt, e.PeerIP, int64(e.PeerAS),
		origin, asPath, originAS, nexthop, med, lp,
		commStd, commExt, commL, attrsJSON, raw,
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
