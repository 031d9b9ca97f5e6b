package purchase

import (
	"fmt"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// LineInput is one product line of a purchase before allocation.
type LineInput struct {
	ProductID   int64   `json:"product_id"`
	Quantity    float64 `json:"quantity"`
	RatePerUnit float64 `json:"rate_per_unit"`
	TotalAmount float64 `json:"total_amount"`
}

// Overheads are purchase-level costs spread across lines by value share.
type Overheads struct {
	Tax       float64
	Packing   float64
	Transport float64
}

// LineAllocation is a line with its overhead share and landed unit cost.
type LineAllocation struct {
	ProductID              int64   `json:"product_id"`
	Quantity               float64 `json:"quantity"`
	RatePerUnit            float64 `json:"rate_per_unit"`
	TotalAmount            float64 `json:"total_amount"`
	PercentageOfPurchase   float64 `json:"percentage_of_purchase"`
	AllocatedTax           float64 `json:"allocated_tax"`
	AllocatedTransport     float64 `json:"allocated_transport"`
	AllocatedPacking       float64 `json:"allocated_packing"`
	TotalAllocatedOverhead float64 `json:"total_allocated_overhead"`
	FinalCostPerUnit       float64 `json:"final_cost_per_unit"`
}

// Allocate spreads the overheads proportionally to each line's share of the
// purchase value. Per-line shares are rounded to 2dp; any residual left by
// rounding is folded into the last line so each bucket sums back exactly to
// the stated amount.
func Allocate(lines []LineInput, overheads Overheads) ([]LineAllocation, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: at least one purchase line is required", shared.ErrValidation)
	}
	if overheads.Tax < 0 || overheads.Packing < 0 || overheads.Transport < 0 {
		return nil, fmt.Errorf("%w: overhead amounts cannot be negative", shared.ErrValidation)
	}

	purchaseValue := 0.0
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", shared.ErrValidation, i+1)
		}
		if line.RatePerUnit <= 0 {
			return nil, fmt.Errorf("%w: line %d rate must be positive", shared.ErrValidation, i+1)
		}
		if !shared.AlmostEqual(line.TotalAmount, line.Quantity*line.RatePerUnit) {
			return nil, fmt.Errorf("%w: line %d total %.2f does not match qty x rate %.2f",
				shared.ErrValidation, i+1, line.TotalAmount, line.Quantity*line.RatePerUnit)
		}
		purchaseValue += line.TotalAmount
	}
	if purchaseValue <= 0 {
		return nil, fmt.Errorf("%w: purchase value must be positive", shared.ErrValidation)
	}

	allocations := make([]LineAllocation, len(lines))
	var sumTax, sumPacking, sumTransport float64
	for i, line := range lines {
		share := line.TotalAmount / purchaseValue
		a := LineAllocation{
			ProductID:            line.ProductID,
			Quantity:             line.Quantity,
			RatePerUnit:          line.RatePerUnit,
			TotalAmount:          line.TotalAmount,
			PercentageOfPurchase: shared.Round2(share * 100),
			AllocatedTax:         shared.Round2(overheads.Tax * share),
			AllocatedPacking:     shared.Round2(overheads.Packing * share),
			AllocatedTransport:   shared.Round2(overheads.Transport * share),
		}
		sumTax += a.AllocatedTax
		sumPacking += a.AllocatedPacking
		sumTransport += a.AllocatedTransport
		allocations[i] = a
	}

	// Reconcile rounding drift into the last line.
	last := &allocations[len(allocations)-1]
	last.AllocatedTax = shared.Round2(last.AllocatedTax + overheads.Tax - sumTax)
	last.AllocatedPacking = shared.Round2(last.AllocatedPacking + overheads.Packing - sumPacking)
	last.AllocatedTransport = shared.Round2(last.AllocatedTransport + overheads.Transport - sumTransport)

	for i := range allocations {
		a := &allocations[i]
		a.TotalAllocatedOverhead = shared.Round2(a.AllocatedTax + a.AllocatedPacking + a.AllocatedTransport)
		a.FinalCostPerUnit = shared.Round2((a.TotalAmount + a.TotalAllocatedOverhead) / a.Quantity)
	}
	return allocations, nil
}
