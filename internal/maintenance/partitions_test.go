package maintenance

import (
	"slices"
	"testing"
	"time"
)

func TestValidPartitionName_Valid(t *testing.T) {
	name := "mrt_rib_entries_20021022"
	if !validPartitionName.MatchString(name) {
		t.Errorf("expected %q to match validPartitionName regex", name)
	}
}

func TestValidPartitionName_Invalid(t *testing.T) {
	invalid := []string{
		"mrt_rib_entries_abc",
		"mrt_rib_entries_default",
		"other_table_20250115",
		"mrt_rib_entries_2025011",
		"",
	}
	for _, name := range invalid {
		if validPartitionName.MatchString(name) {
			t.Errorf("expected %q to NOT match validPartitionName regex", name)
		}
	}
}

func TestValidPartitionName_InjectionAttempt(t *testing.T) {
	name := "mrt_rib_entries_20250115; DROP TABLE x"
	if validPartitionName.MatchString(name) {
		t.Errorf("expected %q to NOT match validPartitionName regex (SQL injection attempt)", name)
	}
}

func TestPartitionName(t *testing.T) {
	day := time.Date(2002, 10, 22, 0, 0, 0, 0, time.UTC)
	if got := partitionName(day); got != "mrt_rib_entries_20021022" {
		t.Errorf("partitionName = %q", got)
	}
}

func TestDistinctDays(t *testing.T) {
	times := []time.Time{
		time.Date(2002, 7, 22, 23, 20, 0, 0, time.UTC),
		time.Unix(0, 0),
		time.Date(2002, 7, 22, 1, 0, 0, 0, time.UTC),
		time.Date(2002, 7, 23, 0, 0, 0, 0, time.UTC),
	}

	days := distinctDays(times, time.UTC)
	want := []time.Time{
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2002, 7, 22, 0, 0, 0, 0, time.UTC),
		time.Date(2002, 7, 23, 0, 0, 0, 0, time.UTC),
	}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d: %v", len(want), len(days), days)
	}
	for i := range want {
		if !days[i].Equal(want[i]) {
			t.Errorf("day %d = %v, want %v", i, days[i], want[i])
		}
	}
}

func TestDistinctDays_Timezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 22:00 UTC is already the next day in UTC+3.
	ts := time.Date(2002, 10, 22, 22, 0, 0, 0, time.UTC)
	days := distinctDays([]time.Time{ts}, loc)
	if len(days) != 1 || days[0].Day() != 23 {
		t.Errorf("expected Oct 23 in UTC+3, got %v", days)
	}
}

func TestPartitionsToDrop(t *testing.T) {
	names := []string{
		"mrt_rib_entries_20021001",
		"mrt_rib_entries_20021015",
		"mrt_rib_entries_20021020",
		"mrt_rib_entries_20021022",
		"mrt_rib_entries_default",
		"something_else",
	}
	newest := time.Date(2002, 10, 22, 15, 0, 0, 0, time.UTC)

	drop := partitionsToDrop(names, newest, 5, time.UTC)
	slices.Sort(drop)
	want := []string{"mrt_rib_entries_20021001", "mrt_rib_entries_20021015"}
	if !slices.Equal(drop, want) {
		t.Errorf("drop = %v, want %v", drop, want)
	}
}

func TestPartitionsToDrop_ArchiveKeptBesideWallClockDays(t *testing.T) {
	now := time.Now().UTC()
	names := []string{
		"mrt_rib_entries_20020722",
		"mrt_rib_entries_20020723",
		partitionName(now),
		partitionName(now.AddDate(0, 0, 1)),
	}
	// Newest stored record comes from the archive, the wall-clock
	// partitions are empty.
	newest := time.Date(2002, 7, 23, 8, 0, 0, 0, time.UTC)

	if drop := partitionsToDrop(names, newest, 30, time.UTC); len(drop) != 0 {
		t.Errorf("archive partitions must survive, dropping %v", drop)
	}
}

func TestPartitionsToDrop_NoDayPartitions(t *testing.T) {
	if drop := partitionsToDrop([]string{"mrt_rib_entries_default"}, time.Now(), 30, time.UTC); len(drop) != 0 {
		t.Errorf("expected nothing to drop, got %v", drop)
	}
}
