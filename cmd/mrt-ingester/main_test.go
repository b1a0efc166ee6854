package main

import (
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"--config", "cfg.yaml", "a.mrt", "--workers", "4", "b.mrt.gz", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.configPath != "cfg.yaml" || f.logLevel != "debug" || f.workers != 4 {
		t.Errorf("unexpected flags %+v", f)
	}
	if len(f.files) != 2 || f.files[0] != "a.mrt" || f.files[1] != "b.mrt.gz" {
		t.Errorf("files = %v", f.files)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	cases := [][]string{
		{"--workers", "0"},
		{"--workers", "many"},
		{"--verbose"},
	}
	for _, args := range cases {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestRedactDSN(t *testing.T) {
	cases := []string{
		"postgres://ingest:secret@db:5432/mrt?sslmode=disable",
		"host=db user=ingest password=secret dbname=mrt",
	}
	for _, dsn := range cases {
		got := redactDSN(dsn)
		if strings.Contains(got, "secret") {
			t.Errorf("redactDSN(%q) = %q leaks the password", dsn, got)
		}
		if !strings.Contains(got, "ingest") {
			t.Errorf("redactDSN(%q) = %q lost the user", dsn, got)
		}
	}
}
