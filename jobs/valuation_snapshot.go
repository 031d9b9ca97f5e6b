package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vastra-erp/vastra-erp/internal/inventory"
)

// ValuationPort reads the current total stock valuation. Invalidate runs
// first so the read recomputes from the ledger and warms the cache.
type ValuationPort interface {
	InvalidateValuation(ctx context.Context)
	TotalValuation(ctx context.Context) (inventory.Valuation, error)
}

// SnapshotWriter persists valuation snapshots.
type SnapshotWriter interface {
	InsertValuationSnapshot(ctx context.Context, v inventory.Valuation) error
}

// ValuationSnapshotJob records nightly stock valuation snapshots.
type ValuationSnapshotJob struct {
	Inventory ValuationPort
	Snapshots SnapshotWriter
	Logger    *slog.Logger
}

// NewValuationSnapshotJob initialises the snapshot handler.
func NewValuationSnapshotJob(inv ValuationPort, snapshots SnapshotWriter, logger *slog.Logger) *ValuationSnapshotJob {
	return &ValuationSnapshotJob{Inventory: inv, Snapshots: snapshots, Logger: logger}
}

// Handle processes TaskValuationSnapshot tasks.
func (j *ValuationSnapshotJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ValuationSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	j.Inventory.InvalidateValuation(ctx)
	valuation, err := j.Inventory.TotalValuation(ctx)
	if err != nil {
		return err
	}
	if err := j.Snapshots.InsertValuationSnapshot(ctx, valuation); err != nil {
		return err
	}

	if j.Logger != nil {
		j.Logger.Info("valuation snapshot recorded",
			slog.Float64("total_qty", valuation.TotalQuantity),
			slog.Float64("total_value", valuation.TotalValue),
			slog.Time("taken_at", valuation.TakenAt))
	}
	return nil
}
