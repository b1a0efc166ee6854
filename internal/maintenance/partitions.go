package maintenance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const partitionPrefix = "mrt_rib_entries_"

var validPartitionName = regexp.MustCompile(`^mrt_rib_entries_\d{8}$`)

// PartitionManager keeps the daily partitions of mrt_rib_entries. Entries
// are partitioned by record time, so an import ensures the days its records
// fall on and retention counts back from the newest stored record rather
// than from the wall clock.
type PartitionManager struct {
	pool          *pgxpool.Pool
	retentionDays int
	loc           *time.Location
	logger        *zap.Logger
}

func NewPartitionManager(pool *pgxpool.Pool, retentionDays int, timezone string, logger *zap.Logger) (*PartitionManager, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %s: %w", timezone, err)
	}
	return &PartitionManager{
		pool:          pool,
		retentionDays: retentionDays,
		loc:           loc,
		logger:        logger,
	}, nil
}

// Location is the timezone partition days are cut in.
func (pm *PartitionManager) Location() *time.Location { return pm.loc }

// Run drops partitions that fell out of the retention window. Partitions are
// created by imports, never for wall-clock days.
func (pm *PartitionManager) Run(ctx context.Context) error {
	if err := pm.DropOldPartitions(ctx); err != nil {
		return fmt.Errorf("dropping old partitions: %w", err)
	}
	return nil
}

// EnsureDays creates one partition per distinct day of days.
func (pm *PartitionManager) EnsureDays(ctx context.Context, days []time.Time) error {
	for _, day := range distinctDays(days, pm.loc) {
		if err := pm.createPartition(ctx, day, day.AddDate(0, 0, 1)); err != nil {
			return err
		}
	}
	return nil
}

func (pm *PartitionManager) createPartition(ctx context.Context, from, to time.Time) error {
	name := partitionName(from)
	safeName := pgx.Identifier{name}.Sanitize()
	fromStr := from.UTC().Format("2006-01-02 15:04:05+00")
	toStr := to.UTC().Format("2006-01-02 15:04:05+00")

	createSQL := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF mrt_rib_entries FOR VALUES FROM ('%s') TO ('%s')`,
		safeName, fromStr, toStr,
	)

	if _, err := pm.pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("creating partition %s: %w", name, err)
	}
	pm.logger.Debug("partition ensured", zap.String("partition", name))
	return nil
}

// DropOldPartitions drops day partitions more than retentionDays older than
// the day of the newest stored record. Nothing is dropped while the table is
// empty.
func (pm *PartitionManager) DropOldPartitions(ctx context.Context) error {
	var newest *time.Time
	if err := pm.pool.QueryRow(ctx, `SELECT max(record_time) FROM mrt_rib_entries`).Scan(&newest); err != nil {
		return fmt.Errorf("finding newest record: %w", err)
	}
	if newest == nil {
		return nil
	}

	rows, err := pm.pool.Query(ctx,
		`SELECT inhrelid::regclass::text FROM pg_inherits WHERE inhparent = 'mrt_rib_entries'::regclass`)
	if err != nil {
		return fmt.Errorf("listing partitions: %w", err)
	}
	defer rows.Close()

	var partitions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning partition name: %w", err)
		}
		partitions = append(partitions, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating partitions: %w", err)
	}

	for _, name := range partitionsToDrop(partitions, *newest, pm.retentionDays, pm.loc) {
		safeName := pgx.Identifier{name}.Sanitize()
		if _, err := pm.pool.Exec(ctx, "DROP TABLE IF EXISTS "+safeName); err != nil {
			return fmt.Errorf("dropping partition %s: %w", name, err)
		}
		pm.logger.Info("dropped old partition", zap.String("partition", name))
	}
	return nil
}

func partitionName(day time.Time) string {
	return partitionPrefix + day.Format("20060102")
}

// distinctDays returns the midnights in loc of the days times fall on,
// in ascending order.
func distinctDays(times []time.Time, loc *time.Location) []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, t := range times {
		t = t.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// partitionsToDrop returns the day partitions among names that lie more than
// retentionDays before the day of newest. Names that are not day partitions
// (the default partition included) are never returned, nor are partitions
// after newest.
func partitionsToDrop(names []string, newest time.Time, retentionDays int, loc *time.Location) []string {
	newest = newest.In(loc)
	newestDay := time.Date(newest.Year(), newest.Month(), newest.Day(), 0, 0, 0, 0, loc)
	cutoff := newestDay.AddDate(0, 0, -retentionDays)

	var drop []string
	for _, name := range names {
		if !validPartitionName.MatchString(name) {
			continue
		}
		day, err := time.ParseInLocation("20060102", name[len(partitionPrefix):], loc)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			drop = append(drop, name)
		}
	}
	return drop
}
