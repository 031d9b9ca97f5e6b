package purchase

import (
	"fmt"
	"time"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// Purchase is the stored purchase header.
type Purchase struct {
	ID                int64     `json:"id"`
	PartyName         string    `json:"party_name"`
	PurchaseDate      time.Time `json:"purchase_date"`
	PurchaseAmount    float64   `json:"purchase_amount"`
	TaxPercentage     float64   `json:"tax_percentage"`
	TaxAmount         float64   `json:"tax_amount"`
	PackingAmount     float64   `json:"packing_amount"`
	DiscountAmount    float64   `json:"discount_amount"`
	TransportName     string    `json:"transport_name"`
	TransportAmount   float64   `json:"transport_amount"`
	ConsignmentNumber string    `json:"consignment_number"`
	CreatedAt         time.Time `json:"created_at"`
}

// SupplierPayment is an amount paid to the supplier against a purchase.
type SupplierPayment struct {
	ID          int64     `json:"id"`
	PurchaseID  int64     `json:"purchase_id"`
	Amount      float64   `json:"amount"`
	Mode        string    `json:"mode"`
	PaymentDate time.Time `json:"payment_date"`
}

// PurchaseWithLines bundles a header with its allocations and payments.
type PurchaseWithLines struct {
	Purchase
	Lines    []LineAllocation  `json:"lines"`
	Payments []SupplierPayment `json:"payments,omitempty"`
}

// PurchaseInput carries everything needed to post a purchase.
type PurchaseInput struct {
	PartyName         string
	PurchaseDate      time.Time
	Lines             []LineInput
	TaxPercentage     float64
	TaxAmount         float64
	PackingAmount     float64
	DiscountAmount    float64
	TransportName     string
	TransportAmount   float64
	ConsignmentNumber string
	PaymentAmount     float64
	PaymentMode       string
	IdempotencyKey    string
	ActorID           int64
}

// ErrPurchaseNotFound indicates a missing purchase.
var ErrPurchaseNotFound = fmt.Errorf("purchase %w", shared.ErrNotFound)
