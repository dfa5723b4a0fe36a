package processor

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"smartjogger/internal/gps"
	"smartjogger/internal/storage"
)

func TestRunStatsProcessor_ComputesSummaryAndGaps(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	if err := store.CreateRun(ctx, storage.Run{ID: "run-1", SessionID: "s", StartedAt: start}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	samples := []gps.Sample{
		{Lat: 52.0, Lon: 4.0, Time: start},
		{Lat: 52.0009, Lon: 4.0, Time: start.Add(10 * time.Second)},
		{Lat: 52.0009, Lon: 4.0, Time: start.Add(30 * time.Second)}, // 20s idle
		{Lat: 52.0018, Lon: 4.0, Time: start.Add(40 * time.Second)},
	}
	for _, s := range samples {
		if err := store.AppendSample(ctx, "run-1", s); err != nil {
			t.Fatalf("append sample: %v", err)
		}
	}
	// 16s of silence before the run is closed
	if err := store.EndRun(ctx, "run-1", start.Add(56*time.Second)); err != nil {
		t.Fatalf("end run: %v", err)
	}

	p := &RunStatsProcessor{Store: store, GapThreshold: 15 * time.Second}
	if err := p.Process(ctx, "run-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := store.GetRunStats(ctx, "run-1")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if got.Summary.Samples != 4 {
		t.Fatalf("expected 4 samples, got %d", got.Summary.Samples)
	}
	if got.Summary.ElapsedSeconds != 40 {
		t.Fatalf("expected 40s elapsed, got %v", got.Summary.ElapsedSeconds)
	}
	if math.Abs(got.Summary.DistanceKm-2*0.1000754) > 1e-4 {
		t.Fatalf("unexpected distance %v", got.Summary.DistanceKm)
	}
	if got.GapCount != 2 {
		t.Fatalf("expected 2 gaps, got %d", got.GapCount)
	}
	if got.GapTotalSeconds != 36 {
		t.Fatalf("expected 36 gap seconds, got %d", got.GapTotalSeconds)
	}
}

func TestRunStatsProcessor_MissingRun(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	p := &RunStatsProcessor{Store: store, GapThreshold: 15 * time.Second}
	if err := p.Process(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for missing run")
	}
}
