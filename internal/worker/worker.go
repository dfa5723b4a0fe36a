package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartjogger/internal/storage"
)

type Processor interface {
	Process(ctx context.Context, runID string) error
}

// Worker drains the run queue one entry at a time.
type Worker struct {
	Store     *storage.Store
	Processor Processor
}

func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	queueID, runID, err := w.Store.DequeueRun(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if err := w.Processor.Process(ctx, runID); err != nil {
		if markErr := w.Store.MarkFailed(ctx, queueID, err); markErr != nil {
			return false, fmt.Errorf("mark run %s failed: %w", runID, markErr)
		}
		return false, fmt.Errorf("process run %s: %w", runID, err)
	}

	if err := w.Store.MarkProcessed(ctx, queueID); err != nil {
		return false, err
	}

	return true, nil
}
