package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// validateBill recomputes the totals from the lines and cross-checks the
// stated ones. Component totals tolerate a penny of drift; the grand total,
// rounded half-up to a whole unit, must match exactly.
func validateBill(in BillInput) error {
	if in.ClientID == 0 {
		return fmt.Errorf("%w: client is required", shared.ErrValidation)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", shared.ErrValidation)
	}

	subTotal := 0.0
	for i, line := range in.Lines {
		if !line.Verified {
			return fmt.Errorf("%w: line %d is not verified", shared.ErrValidation, i+1)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
		}
		if line.Amount < 0 || line.DiscountPct < 0 || line.DiscountPct > 100 {
			return fmt.Errorf("%w: line %d has invalid amount or discount", shared.ErrValidation, i+1)
		}
		lineTotal := line.Amount * line.Quantity * (1 - line.DiscountPct/100)
		if !shared.AlmostEqual(lineTotal, line.Total) {
			return fmt.Errorf("%w: line %d total %.2f does not match computed %.2f",
				shared.ErrValidation, i+1, line.Total, lineTotal)
		}
		subTotal += lineTotal
	}

	if !shared.AlmostEqual(subTotal, in.SubTotal) {
		return fmt.Errorf("%w: sub total %.2f does not match computed %.2f",
			shared.ErrValidation, in.SubTotal, subTotal)
	}
	discount := subTotal * in.DiscountPct / 100
	if !shared.AlmostEqual(discount, in.DiscountAmount) {
		return fmt.Errorf("%w: discount amount %.2f does not match computed %.2f",
			shared.ErrValidation, in.DiscountAmount, discount)
	}
	tax := (subTotal - discount) * in.TaxPct / 100
	if !shared.AlmostEqual(tax, in.TaxAmount) {
		return fmt.Errorf("%w: tax amount %.2f does not match computed %.2f",
			shared.ErrValidation, in.TaxAmount, tax)
	}
	grand := shared.RoundWhole(subTotal - discount + tax)
	if grand != in.GrandTotal {
		return fmt.Errorf("%w: grand total %.2f does not match computed %.2f",
			shared.ErrValidation, in.GrandTotal, grand)
	}
	return nil
}

// costedLine is a bill line after product resolution and cost lookup.
type costedLine struct {
	BillLine
	ProductID        int64
	Mapped           bool
	ProductCreated   bool
	CostPricePerUnit float64
	TotalCostPrice   float64
	ProfitAmount     float64
	ProfitPct        float64
	Insufficient     bool
	Available        float64
}

// costLines resolves each particular to a product and prices it at the
// current weighted-average cost. A line whose name cannot resolve stays on
// the invoice with a zero cost basis and full margin.
func costLines(ctx context.Context, store catalog.TxCatalog, stock inventory.TxStore, resolver catalog.ProductResolver, ledger *inventory.Ledger, lines []BillLine) ([]costedLine, error) {
	out := make([]costedLine, 0, len(lines))
	for _, line := range lines {
		costed := costedLine{BillLine: line}

		product, created, err := resolver.Resolve(ctx, store, line.Particular)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				costed.ProfitAmount = shared.Round2(line.Total)
				costed.ProfitPct = 100
				out = append(out, costed)
				continue
			}
			return nil, err
		}
		costed.ProductID = product.ID
		costed.Mapped = true
		costed.ProductCreated = created

		basis, err := ledger.Preview(ctx, stock, product.ID, line.Quantity)
		if err != nil {
			return nil, err
		}
		costed.CostPricePerUnit = basis.CostPerUnit
		costed.TotalCostPrice = basis.TotalCost
		costed.Insufficient = basis.Insufficient
		costed.Available = basis.Available
		costed.ProfitAmount = shared.Round2(line.Total - basis.TotalCost)
		if basis.TotalCost > 0 {
			costed.ProfitPct = shared.Round2(costed.ProfitAmount / basis.TotalCost * 100)
		} else {
			costed.ProfitPct = 100
		}
		out = append(out, costed)
	}
	return out, nil
}
