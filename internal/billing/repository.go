package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/platform/db"
)

// TxRepository is the transaction-scoped persistence the billing
// orchestrator works through. Catalog and Inventory bind sibling module
// operations to the same transaction so the whole bill commits atomically.
type TxRepository interface {
	ClientExists(ctx context.Context, clientID int64) (bool, error)
	InsertPayment(ctx context.Context, clientID int64, p PaymentInput) (int64, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	DeleteInvoiceDetails(ctx context.Context, invoiceID int64) error
	InsertInvoiceDetail(ctx context.Context, d InvoiceDetail) error
	InsertSaleProfit(ctx context.Context, sp SaleProfit) error
	SumClientInvoiced(ctx context.Context, clientID int64) (float64, error)
	SumClientPaid(ctx context.Context, clientID int64) (float64, error)
	SaveOutstanding(ctx context.Context, o Outstanding) error
	Catalog() catalog.TxCatalog
	Inventory() inventory.TxStore
}

// Repository persists billing data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside one repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			tx:        tx,
			catalog:   catalog.NewTxCatalog(tx),
			inventory: inventory.NewTxStore(tx),
		})
	})
}

type txRepository struct {
	tx        pgx.Tx
	catalog   catalog.TxCatalog
	inventory inventory.TxStore
}

func (t *txRepository) Catalog() catalog.TxCatalog   { return t.catalog }
func (t *txRepository) Inventory() inventory.TxStore { return t.inventory }

func (t *txRepository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id=$1 AND is_active)`, clientID).Scan(&exists)
	return exists, err
}

func (t *txRepository) InsertPayment(ctx context.Context, clientID int64, p PaymentInput) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (client_id, amount, mode, payment_date)
VALUES ($1,$2,$3,$4) RETURNING id`, clientID, p.Amount, p.Mode, p.PaymentDate).Scan(&id)
	return id, err
}

func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices
(client_id, payment_id, invoice_date, sub_total, tax_pct, tax_amount, discount_pct, discount_amount, grand_total, remarks)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		inv.ClientID, inv.PaymentID, inv.InvoiceDate, inv.SubTotal, inv.TaxPct, inv.TaxAmount,
		inv.DiscountPct, inv.DiscountAmount, inv.GrandTotal, inv.Remarks).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateInvoice(ctx context.Context, inv Invoice) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices
SET invoice_date=$2, sub_total=$3, tax_pct=$4, tax_amount=$5, discount_pct=$6, discount_amount=$7, grand_total=$8, remarks=$9
WHERE id=$1`, inv.ID, inv.InvoiceDate, inv.SubTotal, inv.TaxPct, inv.TaxAmount,
		inv.DiscountPct, inv.DiscountAmount, inv.GrandTotal, inv.Remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (t *txRepository) DeleteInvoiceDetails(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM invoice_details WHERE invoice_id=$1`, invoiceID)
	return err
}

func (t *txRepository) InsertInvoiceDetail(ctx context.Context, d InvoiceDetail) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO invoice_details
(invoice_id, sl_no, particular, product_id, amount, quantity, discount_pct, total, discount_total,
 quantity_type, verified, cost_price_per_unit, total_cost_price, profit_amount, profit_pct)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.InvoiceID, d.SlNo, d.Particular, d.ProductID, d.Amount, d.Quantity, d.DiscountPct,
		d.Total, d.DiscountTotal, d.QuantityType, d.Verified, d.CostPricePerUnit,
		d.TotalCostPrice, d.ProfitAmount, d.ProfitPct)
	return err
}

func (t *txRepository) InsertSaleProfit(ctx context.Context, sp SaleProfit) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sale_profits
(invoice_id, product_id, client_id, qty_sold, selling_price_per_unit, cost_price_per_unit,
 total_revenue, total_cost, gross_profit, profit_pct, sale_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sp.InvoiceID, sp.ProductID, sp.ClientID, sp.QuantitySold, sp.SellingPricePerUnit,
		sp.CostPricePerUnit, sp.TotalRevenue, sp.TotalCost, sp.GrossProfit, sp.ProfitPct, sp.SaleDate)
	return err
}

func (t *txRepository) SumClientInvoiced(ctx context.Context, clientID int64) (float64, error) {
	var sum float64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(grand_total),0) FROM invoices WHERE client_id=$1`, clientID).Scan(&sum)
	return sum, err
}

func (t *txRepository) SumClientPaid(ctx context.Context, clientID int64) (float64, error) {
	var sum float64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0) FROM payments WHERE client_id=$1`, clientID).Scan(&sum)
	return sum, err
}

// SaveOutstanding upserts the running balance and appends a history snapshot.
func (t *txRepository) SaveOutstanding(ctx context.Context, o Outstanding) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO client_outstanding (client_id, purchased_amount, payment_amount, modified)
VALUES ($1,$2,$3,$4)
ON CONFLICT (client_id) DO UPDATE SET purchased_amount=$2, payment_amount=$3, modified=$4`,
		o.ClientID, o.PurchasedAmount, o.PaymentAmount, o.Modified)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO client_outstanding_history (client_id, purchased_amount, payment_amount, recorded_at)
VALUES ($1,$2,$3,$4)`, o.ClientID, o.PurchasedAmount, o.PaymentAmount, o.Modified)
	return err
}

// pool-backed reads below.

const invoiceColumns = `id, client_id, payment_id, invoice_date, sub_total, tax_pct, tax_amount,
discount_pct, discount_amount, grand_total, remarks`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ClientID, &inv.PaymentID, &inv.InvoiceDate, &inv.SubTotal,
		&inv.TaxPct, &inv.TaxAmount, &inv.DiscountPct, &inv.DiscountAmount, &inv.GrandTotal, &inv.Remarks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// GetInvoice returns an invoice header.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
}

// ListInvoiceDetails returns the lines of an invoice in sl_no order.
func (r *Repository) ListInvoiceDetails(ctx context.Context, invoiceID int64) ([]InvoiceDetail, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, sl_no, particular, product_id, amount, quantity,
discount_pct, total, discount_total, quantity_type, verified, cost_price_per_unit, total_cost_price,
profit_amount, profit_pct
FROM invoice_details WHERE invoice_id=$1 ORDER BY sl_no`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := []InvoiceDetail{}
	for rows.Next() {
		var d InvoiceDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.SlNo, &d.Particular, &d.ProductID, &d.Amount,
			&d.Quantity, &d.DiscountPct, &d.Total, &d.DiscountTotal, &d.QuantityType, &d.Verified,
			&d.CostPricePerUnit, &d.TotalCostPrice, &d.ProfitAmount, &d.ProfitPct); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ProfitSummary returns the aggregate cost and profit across an invoice.
func (r *Repository) ProfitSummary(ctx context.Context, invoiceID int64) (totalCost, totalProfit float64, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_cost_price),0), COALESCE(SUM(profit_amount),0)
FROM invoice_details WHERE invoice_id=$1`, invoiceID).Scan(&totalCost, &totalProfit)
	return totalCost, totalProfit, err
}

// ListInvoicesByClient returns a client's invoices, newest first.
func (r *Repository) ListInvoicesByClient(ctx context.Context, clientID int64, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE client_id=$1 ORDER BY invoice_date DESC, id DESC LIMIT $2`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.ClientID, &inv.PaymentID, &inv.InvoiceDate, &inv.SubTotal,
			&inv.TaxPct, &inv.TaxAmount, &inv.DiscountPct, &inv.DiscountAmount, &inv.GrandTotal, &inv.Remarks); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GetOutstanding returns the running balance for a client.
func (r *Repository) GetOutstanding(ctx context.Context, clientID int64) (Outstanding, error) {
	var o Outstanding
	err := r.pool.QueryRow(ctx, `SELECT client_id, purchased_amount, payment_amount, modified
FROM client_outstanding WHERE client_id=$1`, clientID).Scan(&o.ClientID, &o.PurchasedAmount, &o.PaymentAmount, &o.Modified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Outstanding{ClientID: clientID, Modified: time.Time{}}, nil
		}
		return Outstanding{}, err
	}
	o.Balance = o.PurchasedAmount - o.PaymentAmount
	return o, nil
}

// ListAllOutstanding returns every client balance, for the audit job.
func (r *Repository) ListAllOutstanding(ctx context.Context) ([]Outstanding, error) {
	rows, err := r.pool.Query(ctx, `SELECT client_id, purchased_amount, payment_amount, modified FROM client_outstanding`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Outstanding{}
	for rows.Next() {
		var o Outstanding
		if err := rows.Scan(&o.ClientID, &o.PurchasedAmount, &o.PaymentAmount, &o.Modified); err != nil {
			return nil, err
		}
		o.Balance = o.PurchasedAmount - o.PaymentAmount
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeriveOutstanding recomputes a client's balance from source tables.
func (r *Repository) DeriveOutstanding(ctx context.Context, clientID int64) (purchased, paid float64, err error) {
	err = r.pool.QueryRow(ctx, `SELECT
 (SELECT COALESCE(SUM(grand_total),0) FROM invoices WHERE client_id=$1),
 (SELECT COALESCE(SUM(amount),0) FROM payments WHERE client_id=$1)`, clientID).Scan(&purchased, &paid)
	return purchased, paid, err
}
