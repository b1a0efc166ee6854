package db

import (
	"testing"
	"testing/fstest"

	"go.uber.org/zap"
)

func TestListMigrations_Ordered(t *testing.T) {
	fsys := fstest.MapFS{
		"0010_later.sql":        {Data: []byte("SELECT 1;")},
		"0002_second.sql":       {Data: []byte("SELECT 1;")},
		"0001_initial.sql":      {Data: []byte("SELECT 1;")},
		"README.md":             {Data: []byte("docs")},
		"abcd_not_numeric.sql":  {Data: []byte("SELECT 1;")},
		"noversion.sql":         {Data: []byte("SELECT 1;")},
		"0003_dir.sql/file.sql": {Data: []byte("SELECT 1;")},
	}

	got, err := listMigrations(fsys, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %d migrations, got %d: %+v", len(want), len(got), got)
	}
	for i, v := range want {
		if got[i].version != v {
			t.Errorf("migration %d: version %d, want %d", i, got[i].version, v)
		}
	}
	if got[0].filename != "0001_initial.sql" {
		t.Errorf("filename = %q", got[0].filename)
	}
}

func TestListMigrations_Empty(t *testing.T) {
	got, err := listMigrations(fstest.MapFS{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no migrations, got %d", len(got))
	}
}
