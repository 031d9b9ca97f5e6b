package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

type memoryRepo struct {
	records   map[int64]Record
	movements []Movement
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[int64]Record)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &memoryStore{repo: r})
}

func (r *memoryRepo) GetRecord(ctx context.Context, productID int64) (Record, error) {
	if rec, ok := r.records[productID]; ok {
		return rec, nil
	}
	return Record{}, ErrRecordNotFound
}

func (r *memoryRepo) ListRecords(ctx context.Context, lowStock float64) ([]Record, error) {
	out := []Record{}
	for _, rec := range r.records {
		if lowStock <= 0 || rec.AvailableQuantity <= lowStock {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	out := []Movement{}
	for _, mv := range r.movements {
		if mv.ProductID == filter.ProductID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (r *memoryRepo) TotalValuation(ctx context.Context) (Valuation, error) {
	var v Valuation
	for _, rec := range r.records {
		v.TotalQuantity += rec.AvailableQuantity
		v.TotalValue += rec.TotalValue
	}
	return v, nil
}

type memoryStore struct {
	repo *memoryRepo
}

func (s *memoryStore) EnsureRecordForUpdate(ctx context.Context, productID int64) (Record, error) {
	if rec, ok := s.repo.records[productID]; ok {
		return rec, nil
	}
	rec := Record{ProductID: productID}
	s.repo.records[productID] = rec
	return rec, nil
}

func (s *memoryStore) GetRecordForUpdate(ctx context.Context, productID int64) (Record, error) {
	if rec, ok := s.repo.records[productID]; ok {
		return rec, nil
	}
	return Record{}, ErrRecordNotFound
}

func (s *memoryStore) GetRecord(ctx context.Context, productID int64) (Record, error) {
	return s.GetRecordForUpdate(ctx, productID)
}

func (s *memoryStore) SaveRecord(ctx context.Context, rec Record) error {
	s.repo.records[rec.ProductID] = rec
	return nil
}

func (s *memoryStore) AppendMovement(ctx context.Context, mv Movement) (int64, error) {
	s.repo.nextID++
	mv.ID = s.repo.nextID
	s.repo.movements = append(s.repo.movements, mv)
	return mv.ID, nil
}

func receiveStock(t *testing.T, ledger *Ledger, repo *memoryRepo, productID int64, qty, cost float64) Record {
	t.Helper()
	var rec Record
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		var err error
		rec, err = ledger.Receive(ctx, store, ReceiveInput{ProductID: productID, Quantity: qty, CostPerUnit: cost, RefType: "PURCHASE", RefID: 1})
		return err
	})
	require.NoError(t, err)
	return rec
}

func requireValueInvariant(t *testing.T, rec Record) {
	t.Helper()
	require.InDelta(t, shared.Round2(rec.AvailableQuantity*rec.WeightedAverageCost), rec.TotalValue, 0.001)
}

func TestReceiveComputesWeightedAverage(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})

	rec := receiveStock(t, ledger, repo, 1, 100, 10)
	require.InDelta(t, 100.0, rec.AvailableQuantity, 0.0001)
	require.InDelta(t, 10.00, rec.WeightedAverageCost, 0.001)
	require.InDelta(t, 1000.00, rec.TotalValue, 0.001)
	requireValueInvariant(t, rec)

	rec = receiveStock(t, ledger, repo, 1, 50, 16)
	require.InDelta(t, 150.0, rec.AvailableQuantity, 0.0001)
	require.InDelta(t, 12.00, rec.WeightedAverageCost, 0.001)
	require.InDelta(t, 1800.00, rec.TotalValue, 0.001)
	requireValueInvariant(t, rec)
}

func TestConsumeAtAverageCostLeavesAverageUnchanged(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	receiveStock(t, ledger, repo, 1, 100, 10)
	receiveStock(t, ledger, repo, 1, 50, 16)

	var basis CostBasis
	var rec Record
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		var err error
		basis, rec, err = ledger.Consume(ctx, store, ConsumeInput{ProductID: 1, Quantity: 30, RefType: "INVOICE", RefID: 7})
		return err
	})
	require.NoError(t, err)
	require.InDelta(t, 12.00, basis.CostPerUnit, 0.001)
	require.InDelta(t, 360.00, basis.TotalCost, 0.001)
	require.InDelta(t, 120.0, rec.AvailableQuantity, 0.0001)
	require.InDelta(t, 12.00, rec.WeightedAverageCost, 0.001)
	require.InDelta(t, 1440.00, rec.TotalValue, 0.001)
	requireValueInvariant(t, rec)
}

func TestConsumeInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	receiveStock(t, ledger, repo, 1, 100, 10)
	receiveStock(t, ledger, repo, 1, 50, 16)
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, _, err := ledger.Consume(ctx, store, ConsumeInput{ProductID: 1, Quantity: 30, RefType: "INVOICE", RefID: 7})
		return err
	})
	require.NoError(t, err)

	err = repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, _, err := ledger.Consume(ctx, store, ConsumeInput{ProductID: 1, Quantity: 200, RefType: "INVOICE", RefID: 8})
		return err
	})
	stockErr, ok := shared.AsInsufficientStock(err)
	require.True(t, ok)
	require.InDelta(t, 120.0, stockErr.Available, 0.0001)
	require.InDelta(t, 200.0, stockErr.Requested, 0.0001)

	// Failed consume must not have mutated the record.
	rec, getErr := repo.GetRecord(context.Background(), 1)
	require.NoError(t, getErr)
	require.InDelta(t, 120.0, rec.AvailableQuantity, 0.0001)
	require.InDelta(t, 12.00, rec.WeightedAverageCost, 0.001)
}

func TestPreviewReportsShortfallWithoutMutating(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	receiveStock(t, ledger, repo, 1, 100, 10)
	receiveStock(t, ledger, repo, 1, 50, 16)
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, _, err := ledger.Consume(ctx, store, ConsumeInput{ProductID: 1, Quantity: 30, RefType: "INVOICE", RefID: 7})
		return err
	})
	require.NoError(t, err)

	var basis CostBasis
	err = repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		var err error
		basis, err = ledger.Preview(ctx, store, 1, 200)
		return err
	})
	require.NoError(t, err)
	require.True(t, basis.Insufficient)
	require.InDelta(t, 12.00, basis.CostPerUnit, 0.001)
	require.InDelta(t, 2400.00, basis.TotalCost, 0.001)
	require.InDelta(t, 120.0, basis.Available, 0.0001)

	rec, err := repo.GetRecord(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 120.0, rec.AvailableQuantity, 0.0001)
	require.Len(t, repo.movements, 3)
}

func TestPreviewMissingRecordYieldsZeroBasis(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	var basis CostBasis
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		var err error
		basis, err = ledger.Preview(ctx, store, 42, 5)
		return err
	})
	require.NoError(t, err)
	require.Zero(t, basis.CostPerUnit)
	require.Zero(t, basis.TotalCost)
	require.False(t, basis.Insufficient)
}

func TestMovementConservation(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	receiveStock(t, ledger, repo, 1, 100, 10)
	receiveStock(t, ledger, repo, 1, 50, 16)
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		if _, _, err := ledger.Consume(ctx, store, ConsumeInput{ProductID: 1, Quantity: 30, RefType: "INVOICE", RefID: 1}); err != nil {
			return err
		}
		if _, err := ledger.Adjust(ctx, store, AdjustInput{ProductID: 1, Quantity: -5, Remarks: "damage"}); err != nil {
			return err
		}
		_, err := ledger.Adjust(ctx, store, AdjustInput{ProductID: 1, Quantity: 10, CostPerUnit: 12, Remarks: "recount"})
		return err
	})
	require.NoError(t, err)

	rec, err := repo.GetRecord(context.Background(), 1)
	require.NoError(t, err)
	var signedSum float64
	for _, mv := range repo.movements {
		signedSum += mv.Quantity
	}
	require.InDelta(t, rec.AvailableQuantity, signedSum, 0.0001)
	requireValueInvariant(t, rec)
}

func TestConsumeMissingRecord(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, _, err := ledger.Consume(ctx, store, ConsumeInput{ProductID: 99, Quantity: 1})
		return err
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNegativeAdjustmentGuard(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	receiveStock(t, ledger, repo, 1, 3, 10)
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, err := ledger.Adjust(ctx, store, AdjustInput{ProductID: 1, Quantity: -5, Remarks: "too much"})
		return err
	})
	require.ErrorIs(t, err, ErrNegativeStock)
}

func TestInvalidInputs(t *testing.T) {
	repo := newMemoryRepo()
	ledger := NewLedger(LedgerConfig{})
	err := repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, err := ledger.Receive(ctx, store, ReceiveInput{ProductID: 1, Quantity: 0, CostPerUnit: 5})
		return err
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = repo.WithTx(context.Background(), func(ctx context.Context, store TxStore) error {
		_, err := ledger.Receive(ctx, store, ReceiveInput{ProductID: 1, Quantity: 5, CostPerUnit: -1})
		return err
	})
	require.ErrorIs(t, err, ErrInvalidUnitCost)
}
