package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vastra-erp/vastra-erp/internal/billing"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
)

type fakeValuation struct {
	invalidated bool
	valuation   inventory.Valuation
}

func (f *fakeValuation) InvalidateValuation(_ context.Context) { f.invalidated = true }
func (f *fakeValuation) TotalValuation(_ context.Context) (inventory.Valuation, error) {
	return f.valuation, nil
}

type fakeSnapshots struct {
	written []inventory.Valuation
}

func (f *fakeSnapshots) InsertValuationSnapshot(_ context.Context, v inventory.Valuation) error {
	f.written = append(f.written, v)
	return nil
}

func TestValuationSnapshotJob(t *testing.T) {
	source := &fakeValuation{valuation: inventory.Valuation{
		TotalQuantity: 150, TotalValue: 1800, TakenAt: time.Now().UTC(),
	}}
	sink := &fakeSnapshots{}
	job := NewValuationSnapshotJob(source, sink, nil)

	task, err := NewValuationSnapshotTask(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.True(t, source.invalidated)
	require.Len(t, sink.written, 1)
	require.InDelta(t, 1800.0, sink.written[0].TotalValue, 1e-9)
}

type fakeOutstanding struct {
	stored  []billing.Outstanding
	derived map[int64][2]float64
}

func (f *fakeOutstanding) ListAllOutstanding(_ context.Context) ([]billing.Outstanding, error) {
	return f.stored, nil
}

func (f *fakeOutstanding) DeriveOutstanding(_ context.Context, clientID int64) (float64, float64, error) {
	d := f.derived[clientID]
	return d[0], d[1], nil
}

func TestOutstandingAuditJob(t *testing.T) {
	port := &fakeOutstanding{
		stored: []billing.Outstanding{
			{ClientID: 1, PurchasedAmount: 1000, PaymentAmount: 400},
			{ClientID: 2, PurchasedAmount: 500, PaymentAmount: 500},
		},
		derived: map[int64][2]float64{
			1: {1000, 400},
			2: {600, 500}, // drifted
		},
	}
	job := NewOutstandingAuditJob(port, nil)

	task, err := NewOutstandingAuditTask(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
}
