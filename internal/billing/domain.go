package billing

import (
	"fmt"
	"time"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// BillLine is one particular sold on an invoice. Amount is the unit price;
// Total is the stated line total after the line discount.
type BillLine struct {
	SlNo         int     `json:"sl_no"`
	Particular   string  `json:"particular"`
	Amount       float64 `json:"amount"`
	Quantity     float64 `json:"quantity"`
	DiscountPct  float64 `json:"discount_pct"`
	Total        float64 `json:"total"`
	QuantityType string  `json:"quantity_type"`
	Verified     bool    `json:"verified"`
}

// PaymentInput is the payment recorded alongside a bill.
type PaymentInput struct {
	Amount      float64
	Mode        string
	PaymentDate time.Time
}

// BillInput carries everything needed to post a bill. The stated totals are
// cross-checked against the recomputed ones before anything is written.
type BillInput struct {
	ClientID       int64
	InvoiceDate    time.Time
	Lines          []BillLine
	SubTotal       float64
	TaxPct         float64
	TaxAmount      float64
	DiscountPct    float64
	DiscountAmount float64
	GrandTotal     float64
	Remarks        string
	Payment        PaymentInput
	IdempotencyKey string
	ActorID        int64
}

// Invoice is the stored invoice header.
type Invoice struct {
	ID             int64     `json:"id"`
	ClientID       int64     `json:"client_id"`
	PaymentID      int64     `json:"payment_id"`
	InvoiceDate    time.Time `json:"invoice_date"`
	SubTotal       float64   `json:"sub_total"`
	TaxPct         float64   `json:"tax_pct"`
	TaxAmount      float64   `json:"tax_amount"`
	DiscountPct    float64   `json:"discount_pct"`
	DiscountAmount float64   `json:"discount_amount"`
	GrandTotal     float64   `json:"grand_total"`
	Remarks        string    `json:"remarks"`
}

// InvoiceDetail is one persisted invoice line with its cost basis.
type InvoiceDetail struct {
	ID               int64   `json:"id"`
	InvoiceID        int64   `json:"invoice_id"`
	SlNo             int     `json:"sl_no"`
	Particular       string  `json:"particular"`
	ProductID        *int64  `json:"product_id"`
	Amount           float64 `json:"amount"`
	Quantity         float64 `json:"quantity"`
	DiscountPct      float64 `json:"discount_pct"`
	Total            float64 `json:"total"`
	DiscountTotal    float64 `json:"discount_total"`
	QuantityType     string  `json:"quantity_type"`
	Verified         bool    `json:"verified"`
	CostPricePerUnit float64 `json:"cost_price_per_unit"`
	TotalCostPrice   float64 `json:"total_cost_price"`
	ProfitAmount     float64 `json:"profit_amount"`
	ProfitPct        float64 `json:"profit_pct"`
}

// SaleProfit is one realised-margin row, written only for lines that mapped
// to a product.
type SaleProfit struct {
	ID                  int64     `json:"id"`
	InvoiceID           int64     `json:"invoice_id"`
	ProductID           int64     `json:"product_id"`
	ClientID            int64     `json:"client_id"`
	QuantitySold        float64   `json:"quantity_sold"`
	SellingPricePerUnit float64   `json:"selling_price_per_unit"`
	CostPricePerUnit    float64   `json:"cost_price_per_unit"`
	TotalRevenue        float64   `json:"total_revenue"`
	TotalCost           float64   `json:"total_cost"`
	GrossProfit         float64   `json:"gross_profit"`
	ProfitPct           float64   `json:"profit_pct"`
	SaleDate            time.Time `json:"sale_date"`
}

// Outstanding is the running balance for one client.
type Outstanding struct {
	ClientID        int64     `json:"client_id"`
	PurchasedAmount float64   `json:"purchased_amount"`
	PaymentAmount   float64   `json:"payment_amount"`
	Balance         float64   `json:"balance"`
	Modified        time.Time `json:"modified"`
}

// BillResult is returned after a bill posts.
type BillResult struct {
	InvoiceID   int64    `json:"invoice_id"`
	PaymentID   int64    `json:"payment_id"`
	GrandTotal  float64  `json:"grand_total"`
	TotalProfit float64  `json:"total_profit"`
	Warnings    []string `json:"warnings,omitempty"`
}

// InvoiceWithDetails bundles an invoice header with its lines and aggregate
// profit.
type InvoiceWithDetails struct {
	Invoice     Invoice         `json:"invoice"`
	Details     []InvoiceDetail `json:"details"`
	TotalProfit float64         `json:"total_profit"`
	TotalCost   float64         `json:"total_cost"`
}

// ErrInvoiceNotFound indicates a missing invoice.
var ErrInvoiceNotFound = fmt.Errorf("invoice %w", shared.ErrNotFound)
