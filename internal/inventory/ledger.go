package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// TxStore is the transaction-scoped persistence the ledger operates on.
// Orchestrators in other modules obtain one from their own transaction so
// that ledger mutations commit or roll back with the surrounding work.
type TxStore interface {
	// EnsureRecordForUpdate upserts a zero-quantity record for the product
	// if absent, then returns the row locked for update.
	EnsureRecordForUpdate(ctx context.Context, productID int64) (Record, error)
	// GetRecordForUpdate returns the locked row, ErrRecordNotFound if absent.
	GetRecordForUpdate(ctx context.Context, productID int64) (Record, error)
	// GetRecord reads without locking, for check-only previews.
	GetRecord(ctx context.Context, productID int64) (Record, error)
	SaveRecord(ctx context.Context, rec Record) error
	AppendMovement(ctx context.Context, mv Movement) (int64, error)
}

// Ledger implements moving weighted-average costing over a TxStore. Receives
// fold the incoming cost into the average; consumptions never do. All record
// mutations pass through a row lock, so per-product changes are serialised.
type Ledger struct {
	allowNegative bool
}

// LedgerConfig groups optional settings.
type LedgerConfig struct {
	AllowNegativeStock bool
}

// NewLedger builds a Ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	return &Ledger{allowNegative: cfg.AllowNegativeStock}
}

// Receive posts inbound stock at a landed cost per unit and recomputes the
// weighted average. The record is created lazily on first receipt.
func (l *Ledger) Receive(ctx context.Context, store TxStore, in ReceiveInput) (Record, error) {
	if in.ProductID == 0 {
		return Record{}, ErrRecordNotFound
	}
	if in.Quantity <= 0 {
		return Record{}, ErrInvalidQuantity
	}
	if in.CostPerUnit < 0 {
		return Record{}, ErrInvalidUnitCost
	}

	rec, err := store.EnsureRecordForUpdate(ctx, in.ProductID)
	if err != nil {
		return Record{}, err
	}

	newQty := rec.AvailableQuantity + in.Quantity
	var newAvg float64
	if newQty > 0 {
		newAvg = shared.Round2((rec.AvailableQuantity*rec.WeightedAverageCost + in.Quantity*in.CostPerUnit) / newQty)
	}
	rec.AvailableQuantity = newQty
	rec.WeightedAverageCost = newAvg
	rec.TotalValue = shared.Round2(newQty * newAvg)
	rec.LastUpdated = time.Now().UTC()

	if err := store.SaveRecord(ctx, rec); err != nil {
		return Record{}, err
	}
	addedValue := shared.Round2(in.Quantity * in.CostPerUnit)
	_, err = store.AppendMovement(ctx, Movement{
		ProductID:       in.ProductID,
		Type:            MovementPurchaseIn,
		Quantity:        in.Quantity,
		CostPerUnit:     in.CostPerUnit,
		TotalValue:      addedValue,
		RefType:         in.RefType,
		RefID:           in.RefID,
		BalanceQuantity: rec.AvailableQuantity,
		BalanceValue:    rec.TotalValue,
		Remarks:         in.Remarks,
		MovedAt:         rec.LastUpdated,
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Consume posts outbound stock at the current weighted-average cost. The
// average is never altered by a sale; only the quantity and value shrink.
func (l *Ledger) Consume(ctx context.Context, store TxStore, in ConsumeInput) (CostBasis, Record, error) {
	if in.Quantity <= 0 {
		return CostBasis{}, Record{}, ErrInvalidQuantity
	}

	rec, err := store.GetRecordForUpdate(ctx, in.ProductID)
	if err != nil {
		return CostBasis{}, Record{}, err
	}
	if rec.AvailableQuantity < in.Quantity && !l.allowNegative {
		return CostBasis{}, Record{}, &shared.InsufficientStockError{
			ProductID: in.ProductID,
			Requested: in.Quantity,
			Available: rec.AvailableQuantity,
		}
	}

	costPerUnit := rec.WeightedAverageCost
	saleValue := shared.Round2(in.Quantity * costPerUnit)
	rec.AvailableQuantity -= in.Quantity
	rec.TotalValue = shared.Round2(rec.AvailableQuantity * rec.WeightedAverageCost)
	rec.LastUpdated = time.Now().UTC()

	if err := store.SaveRecord(ctx, rec); err != nil {
		return CostBasis{}, Record{}, err
	}
	_, err = store.AppendMovement(ctx, Movement{
		ProductID:       in.ProductID,
		Type:            MovementSaleOut,
		Quantity:        -in.Quantity,
		CostPerUnit:     costPerUnit,
		TotalValue:      -saleValue,
		RefType:         in.RefType,
		RefID:           in.RefID,
		BalanceQuantity: rec.AvailableQuantity,
		BalanceValue:    rec.TotalValue,
		Remarks:         in.Remarks,
		MovedAt:         rec.LastUpdated,
	})
	if err != nil {
		return CostBasis{}, Record{}, err
	}
	return CostBasis{CostPerUnit: costPerUnit, TotalCost: saleValue, Available: rec.AvailableQuantity}, rec, nil
}

// Preview returns the cost basis a consumption would use without mutating
// any state. A shortfall is reported through the Insufficient flag instead
// of an error, and a missing record yields a zero basis.
func (l *Ledger) Preview(ctx context.Context, store TxStore, productID int64, quantity float64) (CostBasis, error) {
	if quantity <= 0 {
		return CostBasis{}, ErrInvalidQuantity
	}
	rec, err := store.GetRecord(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return CostBasis{}, nil
		}
		return CostBasis{}, err
	}
	basis := CostBasis{
		CostPerUnit: rec.WeightedAverageCost,
		TotalCost:   shared.Round2(quantity * rec.WeightedAverageCost),
		Available:   rec.AvailableQuantity,
	}
	if rec.AvailableQuantity < quantity {
		basis.Insufficient = true
	}
	return basis, nil
}

// Adjust posts a signed manual correction. Positive adjustments behave like
// receipts and fold the supplied cost into the average; negative ones issue
// stock at the current average.
func (l *Ledger) Adjust(ctx context.Context, store TxStore, in AdjustInput) (Record, error) {
	if in.Quantity == 0 {
		return Record{}, ErrInvalidQuantity
	}
	if in.Quantity > 0 {
		if in.CostPerUnit < 0 {
			return Record{}, ErrInvalidUnitCost
		}
		rec, err := store.EnsureRecordForUpdate(ctx, in.ProductID)
		if err != nil {
			return Record{}, err
		}
		newQty := rec.AvailableQuantity + in.Quantity
		newAvg := shared.Round2((rec.AvailableQuantity*rec.WeightedAverageCost + in.Quantity*in.CostPerUnit) / newQty)
		rec.AvailableQuantity = newQty
		rec.WeightedAverageCost = newAvg
		rec.TotalValue = shared.Round2(newQty * newAvg)
		rec.LastUpdated = time.Now().UTC()
		if err := store.SaveRecord(ctx, rec); err != nil {
			return Record{}, err
		}
		if _, err := store.AppendMovement(ctx, Movement{
			ProductID:       in.ProductID,
			Type:            MovementAdjustment,
			Quantity:        in.Quantity,
			CostPerUnit:     in.CostPerUnit,
			TotalValue:      shared.Round2(in.Quantity * in.CostPerUnit),
			RefType:         "ADJUSTMENT",
			BalanceQuantity: rec.AvailableQuantity,
			BalanceValue:    rec.TotalValue,
			Remarks:         in.Remarks,
			MovedAt:         rec.LastUpdated,
		}); err != nil {
			return Record{}, err
		}
		return rec, nil
	}

	rec, err := store.GetRecordForUpdate(ctx, in.ProductID)
	if err != nil {
		return Record{}, err
	}
	issued := -in.Quantity
	if rec.AvailableQuantity < issued && !l.allowNegative {
		return Record{}, ErrNegativeStock
	}
	costPerUnit := rec.WeightedAverageCost
	rec.AvailableQuantity -= issued
	rec.TotalValue = shared.Round2(rec.AvailableQuantity * rec.WeightedAverageCost)
	rec.LastUpdated = time.Now().UTC()
	if err := store.SaveRecord(ctx, rec); err != nil {
		return Record{}, err
	}
	if _, err := store.AppendMovement(ctx, Movement{
		ProductID:       in.ProductID,
		Type:            MovementAdjustment,
		Quantity:        in.Quantity,
		CostPerUnit:     costPerUnit,
		TotalValue:      shared.Round2(in.Quantity * costPerUnit),
		RefType:         "ADJUSTMENT",
		BalanceQuantity: rec.AvailableQuantity,
		BalanceValue:    rec.TotalValue,
		Remarks:         in.Remarks,
		MovedAt:         rec.LastUpdated,
	}); err != nil {
		return Record{}, err
	}
	return rec, nil
}
