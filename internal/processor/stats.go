package processor

import (
	"context"
	"fmt"
	"time"

	"smartjogger/internal/gps"
	"smartjogger/internal/stats"
	"smartjogger/internal/storage"
)

// RunStatsProcessor summarises a finished run: the same motion statistics the
// live session shows, plus the idle gaps that would have raised stop alerts.
type RunStatsProcessor struct {
	Store        *storage.Store
	GapThreshold time.Duration
}

func (p *RunStatsProcessor) Process(ctx context.Context, runID string) error {
	run, err := p.Store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	samples, err := p.Store.LoadRunSamples(ctx, runID)
	if err != nil {
		return fmt.Errorf("load samples for run %s: %w", runID, err)
	}

	result := stats.RunStats{
		RunID:   runID,
		Summary: gps.Compute(samples),
	}
	for _, gap := range gps.DetectGaps(samples, run.EndedAt, p.GapThreshold) {
		result.GapCount++
		result.GapTotalSeconds += int(gap.Duration.Seconds())
	}

	return p.Store.UpsertRunStats(ctx, result)
}
