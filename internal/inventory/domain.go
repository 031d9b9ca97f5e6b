package inventory

import (
	"fmt"
	"time"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// MovementType enumerates supported ledger movements.
type MovementType string

const (
	// MovementPurchaseIn represents stock received from a purchase.
	MovementPurchaseIn MovementType = "PURCHASE_IN"
	// MovementSaleOut represents stock consumed by an invoice.
	MovementSaleOut MovementType = "SALE_OUT"
	// MovementAdjustment indicates a manual correction.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Record is the single mutable aggregate per product: quantity on hand and
// the moving weighted-average unit cost. TotalValue is derived from the
// other two fields on every mutation.
type Record struct {
	ProductID           int64
	AvailableQuantity   float64
	WeightedAverageCost float64
	TotalValue          float64
	LastUpdated         time.Time
}

// Movement is one append-only ledger row. Quantity and TotalValue are signed:
// positive for inbound, negative for outbound.
type Movement struct {
	ID              int64
	ProductID       int64
	Type            MovementType
	Quantity        float64
	CostPerUnit     float64
	TotalValue      float64
	RefType         string
	RefID           int64
	BalanceQuantity float64
	BalanceValue    float64
	Remarks         string
	MovedAt         time.Time
}

// CostBasis is the result of a consumption or a check-only preview.
type CostBasis struct {
	CostPerUnit  float64
	TotalCost    float64
	Insufficient bool
	Available    float64
}

// ReceiveInput describes an inbound posting at a landed cost.
type ReceiveInput struct {
	ProductID   int64
	Quantity    float64
	CostPerUnit float64
	RefType     string
	RefID       int64
	Remarks     string
}

// ConsumeInput describes an outbound posting at the current average cost.
type ConsumeInput struct {
	ProductID int64
	Quantity  float64
	RefType   string
	RefID     int64
	Remarks   string
}

// AdjustInput describes a signed manual correction.
type AdjustInput struct {
	ProductID   int64
	Quantity    float64
	CostPerUnit float64
	Remarks     string
	ActorID     int64
}

// MovementFilter filters ledger history.
type MovementFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// Valuation summarises total stock across all products.
type Valuation struct {
	TotalQuantity float64   `json:"total_quantity"`
	TotalValue    float64   `json:"total_value"`
	TakenAt       time.Time `json:"taken_at"`
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	// ErrInvalidUnitCost indicates a negative cost value.
	ErrInvalidUnitCost = fmt.Errorf("%w: unit cost must be >= 0", shared.ErrValidation)
	// ErrRecordNotFound indicates no inventory record exists for the product.
	ErrRecordNotFound = fmt.Errorf("inventory record %w", shared.ErrNotFound)
	// ErrNegativeStock is raised by adjustments that would push stock negative.
	ErrNegativeStock = fmt.Errorf("%w: negative stock not allowed", shared.ErrValidation)
)
