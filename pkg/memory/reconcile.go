package memory

import (
	"context"
	"fmt"
)

// Reconcile removes the vectors of soft-deleted or missing memories, then
// their pointer rows, batchSize at a time. Zero uses the configured batch.
// It is safe to run repeatedly. A vector delete failure stops the run and
// the counts so far are returned with the error.
func (e *Engine) Reconcile(ctx context.Context, batchSize int) (*ReconcileResult, error) {
	if batchSize <= 0 {
		batchSize = e.reconcileBatch
	}

	res := &ReconcileResult{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := e.store.ListOrphanPointers(ctx, batchSize)
		if err != nil {
			return res, fmt.Errorf("listing orphaned pointers: %w", err)
		}
		if len(page) == 0 {
			break
		}
		res.Scanned += len(page)

		vectorIDs := make([]string, len(page))
		memoryIDs := make([]string, len(page))
		for i, p := range page {
			vectorIDs[i] = p.VectorID
			memoryIDs[i] = p.MemoryID
		}

		if err := e.vectors.Delete(ctx, vectorIDs); err != nil {
			return res, fmt.Errorf("deleting vectors (batch %d): %w", res.Batches+1, err)
		}
		if err := e.store.DeletePointers(ctx, memoryIDs); err != nil {
			return res, fmt.Errorf("deleting pointers (batch %d): %w", res.Batches+1, err)
		}

		res.Removed += len(page)
		res.Batches++

		e.logger.Debug("reconciled memory vectors", "batch", res.Batches, "removed", len(page))
	}

	e.logger.Info("memory reconcile complete",
		"scanned", res.Scanned,
		"removed", res.Removed,
		"batches", res.Batches,
	)
	return res, nil
}
