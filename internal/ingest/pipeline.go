package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/route-beacon/mrt-ingester/internal/bgp"
	"github.com/route-beacon/mrt-ingester/internal/metrics"
	"github.com/route-beacon/mrt-ingester/internal/mrt"
	"go.uber.org/zap"
)

// Sink receives batches of entries. FlushBatch returns the number of entries
// actually stored.
type Sink interface {
	Name() string
	FlushBatch(ctx context.Context, entries []*Entry) (int64, error)
}

// Stats summarizes one import.
type Stats struct {
	Records      int64
	Entries      int64
	Opaque       int64 // records of kinds without a decoder
	RecordErrors int64
	Warnings     int64
	Written      map[string]int64 // per sink
	Faulted      bool
}

type Pipeline struct {
	sinks            []Sink
	batchSize        int
	workers          int
	chunkSize        int
	decodeAttributes bool
	logger           *zap.Logger
}

func NewPipeline(sinks []Sink, batchSize, workers, chunkSize int, decodeAttributes bool, logger *zap.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if chunkSize < 1 {
		chunkSize = batchSize
	}
	return &Pipeline{
		sinks:            sinks,
		batchSize:        batchSize,
		workers:          workers,
		chunkSize:        chunkSize,
		decodeAttributes: decodeAttributes,
		logger:           logger,
	}
}

// run holds the state of one import.
type run struct {
	p      *Pipeline
	source string
	dump   []byte
	batch  []*Entry
	stats  Stats
}

// Run imports every record of the dump owned by r. Per-record errors are
// counted and logged; the returned error is non-nil only when the dump is
// corrupt (a truncated header), a sink fails, or ctx is cancelled. Pending
// entries are flushed before Run returns, so r may be closed afterwards.
func (p *Pipeline) Run(ctx context.Context, r *mrt.Reader) (Stats, error) {
	st := &run{
		p:      p,
		source: filepath.Base(r.Path()),
		dump:   r.Bytes(),
		stats:  Stats{Written: make(map[string]int64)},
	}

	var err error
	if p.workers > 1 {
		err = st.runParallel(ctx)
	} else {
		err = st.runSequential(ctx, r.Stream())
	}

	if errors.Is(err, mrt.ErrTruncatedHeader) {
		st.stats.Faulted = true
		metrics.StreamFaultsTotal.Inc()
		p.logger.Error("dump ends inside a record header, stopping",
			zap.String("source", st.source),
			zap.Error(err),
		)
	}

	// Entries decoded before a fault are still good.
	if err == nil || st.stats.Faulted {
		if ferr := st.flush(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}
	return st.stats, err
}

func (st *run) runSequential(ctx context.Context, s *mrt.Stream) error {
	for {
		if st.stats.Records%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		rec, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if rec == nil {
			return err
		}
		if err := st.handle(ctx, rec, err); err != nil {
			return err
		}
	}
}

func (st *run) runParallel(ctx context.Context) error {
	index, scanErr := mrt.Scan(st.dump)
	st.p.logger.Debug("dump indexed",
		zap.String("source", st.source),
		zap.Int("records", len(index)),
		zap.Int("workers", st.p.workers),
	)

	for start := 0; start < len(index); start += st.p.chunkSize {
		end := min(start+st.p.chunkSize, len(index))
		results, err := mrt.DecodeIndexed(ctx, st.dump, index[start:end], st.p.workers)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := st.handle(ctx, res.Record, res.Err); err != nil {
				return err
			}
		}
	}
	return scanErr
}

func (st *run) handle(ctx context.Context, rec *mrt.Record, recErr error) error {
	st.stats.Records++
	metrics.RecordsTotal.WithLabelValues(rec.Kind.Family.String()).Inc()
	metrics.BytesDecodedTotal.Add(float64(rec.Header.Size() + len(rec.Raw)))
	metrics.LastRecordTimestamp.Set(float64(rec.Header.Timestamp))

	if recErr != nil {
		var re *mrt.RecordError
		warning := errors.As(recErr, &re) && re.Warning()
		metrics.RecordErrorsTotal.WithLabelValues(errorReason(recErr)).Inc()
		if warning {
			st.stats.Warnings++
			st.p.logger.Debug("record has trailing bytes",
				zap.Int("offset", rec.Offset),
				zap.String("kind", rec.Kind.String()),
			)
		} else {
			st.stats.RecordErrors++
			st.p.logger.Warn("failed to decode record",
				zap.String("source", st.source),
				zap.Int("offset", rec.Offset),
				zap.String("kind", rec.Kind.String()),
				zap.Error(recErr),
			)
		}
	}

	td, ok := rec.TableDump()
	if !ok {
		if rec.Body == nil && recErr == nil {
			st.stats.Opaque++
		}
		return nil
	}

	e := newEntry(st.source, rec, td, rec.Bytes(st.dump))
	if st.p.decodeAttributes && len(td.Attributes) > 0 {
		attrs, err := bgp.ParsePathAttributes(td.Attributes, bgp.ASSize2)
		if err != nil {
			metrics.RecordErrorsTotal.WithLabelValues("attributes").Inc()
			st.p.logger.Debug("failed to parse path attributes",
				zap.Int("offset", rec.Offset),
				zap.Error(err),
			)
		}
		e.Attrs = attrs
	}
	st.batch = append(st.batch, e)
	st.stats.Entries++

	if len(st.batch) >= st.p.batchSize {
		return st.flush(ctx)
	}
	return nil
}

func (st *run) flush(ctx context.Context) error {
	if len(st.batch) == 0 {
		return nil
	}
	for _, sink := range st.p.sinks {
		n, err := sink.FlushBatch(ctx, st.batch)
		if err != nil {
			return fmt.Errorf("flushing %d entries to %s: %w", len(st.batch), sink.Name(), err)
		}
		st.stats.Written[sink.Name()] += n
		metrics.BatchSize.WithLabelValues(sink.Name()).Observe(float64(len(st.batch)))

		st.p.logger.Debug("batch flushed",
			zap.String("sink", sink.Name()),
			zap.Int("batch_size", len(st.batch)),
			zap.Int64("written", n),
		)
	}
	st.batch = nil
	return nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, mrt.ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, mrt.ErrInvalidPrefixLength):
		return "invalid_prefix_length"
	case errors.Is(err, mrt.ErrTrailingBytes):
		return "trailing_bytes"
	case errors.Is(err, mrt.ErrTruncated):
		return "truncated"
	default:
		return "other"
	}
}

// RecordDays returns the distinct days, as midnights in loc, that the dump's
// record timestamps fall on, reading headers only. A truncated header ends
// the scan without error. Outlier timestamps add single days rather than
// stretching a range.
func RecordDays(r *mrt.Reader, loc *time.Location) []time.Time {
	index, _ := mrt.Scan(r.Bytes())
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, e := range index {
		t := e.Header.Time().In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days
}
