package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/route-beacon/mrt-ingester/internal/ingest"
)

const upsertDumpSQL = `
INSERT INTO mrt_dumps (source, path, size_bytes, records, entries, opaque,
    record_errors, warnings, faulted, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (source) DO UPDATE SET
    path          = EXCLUDED.path,
    size_bytes    = EXCLUDED.size_bytes,
    records       = EXCLUDED.records,
    entries       = EXCLUDED.entries,
    opaque        = EXCLUDED.opaque,
    record_errors = EXCLUDED.record_errors,
    warnings      = EXCLUDED.warnings,
    faulted       = EXCLUDED.faulted,
    started_at    = EXCLUDED.started_at,
    finished_at   = EXCLUDED.finished_at,
    imports       = mrt_dumps.imports + 1`

// DumpRun describes one import of a dump file.
type DumpRun struct {
	Source     string
	Path       string
	SizeBytes  int
	Stats      ingest.Stats
	StartedAt  time.Time
	FinishedAt time.Time
}

// UpsertDump records the outcome of an import in mrt_dumps. Re-importing
// the same file overwrites the previous outcome and bumps imports.
// Errors should be treated as non-fatal to the import.
func UpsertDump(ctx context.Context, pool *pgxpool.Pool, run DumpRun) error {
	_, err := pool.Exec(ctx, upsertDumpSQL, dumpArgs(run)...)
	return err
}

func dumpArgs(run DumpRun) []any {
	return []any{
		run.Source,
		nilIfEmpty(run.Path),
		int64(run.SizeBytes),
		run.Stats.Records,
		run.Stats.Entries,
		run.Stats.Opaque,
		run.Stats.RecordErrors,
		run.Stats.Warnings,
		run.Stats.Faulted,
		run.StartedAt,
		run.FinishedAt,
	}
}
