package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %d", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %d", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty p50 = %d", got)
	}
}

func TestRunSmallLoadAgainstMiniredis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	opts := options{subjects: 20, concurrency: 4, ops: 100, prefix: "lt", idFormat: "ulid"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), opts, logger); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRunSmallLoadAgainstSQLite(t *testing.T) {
	opts := options{
		subjects:    10,
		concurrency: 2,
		ops:         20,
		prefix:      "lt",
		idFormat:    "uuid",
		sqlite:      filepath.Join(t.TempDir(), "load.db"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), opts, logger); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}
