package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartjogger/internal/gps"
)

// Recorder persists the samples a session accepts, one run per tracking
// period. Ended runs are queued for summarising.
type Recorder struct {
	Store *Store
}

func (r *Recorder) Begin(ctx context.Context, sessionID string, at time.Time) (string, error) {
	id := uuid.NewString()
	if err := r.Store.CreateRun(ctx, Run{ID: id, SessionID: sessionID, StartedAt: at}); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (r *Recorder) Record(ctx context.Context, runID string, sample gps.Sample) error {
	if err := r.Store.AppendSample(ctx, runID, sample); err != nil {
		return fmt.Errorf("append sample to run %s: %w", runID, err)
	}
	return nil
}

func (r *Recorder) End(ctx context.Context, runID string, at time.Time) error {
	if err := r.Store.EndRun(ctx, runID, at); err != nil {
		return fmt.Errorf("end run %s: %w", runID, err)
	}
	if err := r.Store.EnqueueRun(ctx, runID); err != nil {
		return fmt.Errorf("enqueue run %s: %w", runID, err)
	}
	return nil
}
