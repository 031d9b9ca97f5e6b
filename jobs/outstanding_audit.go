package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"

	"github.com/vastra-erp/vastra-erp/internal/billing"
)

// OutstandingPort reads stored balances and re-derives them from source
// tables.
type OutstandingPort interface {
	ListAllOutstanding(ctx context.Context) ([]billing.Outstanding, error)
	DeriveOutstanding(ctx context.Context, clientID int64) (purchased, paid float64, err error)
}

// OutstandingAuditJob recomputes every client balance from invoices and
// payments and logs any drift against the stored running totals.
type OutstandingAuditJob struct {
	Billing OutstandingPort
	Logger  *slog.Logger
}

// NewOutstandingAuditJob initialises the audit handler.
func NewOutstandingAuditJob(b OutstandingPort, logger *slog.Logger) *OutstandingAuditJob {
	return &OutstandingAuditJob{Billing: b, Logger: logger}
}

const driftTolerance = 0.01

// Handle processes TaskOutstandingAudit tasks.
func (j *OutstandingAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OutstandingAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	stored, err := j.Billing.ListAllOutstanding(ctx)
	if err != nil {
		return err
	}

	drifted := 0
	for _, o := range stored {
		purchased, paid, err := j.Billing.DeriveOutstanding(ctx, o.ClientID)
		if err != nil {
			return err
		}
		if math.Abs(purchased-o.PurchasedAmount) > driftTolerance || math.Abs(paid-o.PaymentAmount) > driftTolerance {
			drifted++
			if j.Logger != nil {
				j.Logger.Warn("outstanding drift detected",
					slog.Int64("client_id", o.ClientID),
					slog.Float64("stored_purchased", o.PurchasedAmount),
					slog.Float64("derived_purchased", purchased),
					slog.Float64("stored_paid", o.PaymentAmount),
					slog.Float64("derived_paid", paid))
			}
		}
	}

	if j.Logger != nil {
		j.Logger.Info("outstanding audit complete",
			slog.Int("clients", len(stored)),
			slog.Int("drifted", drifted))
	}
	return nil
}
