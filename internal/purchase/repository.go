package purchase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/platform/db"
)

// TxRepository is the transaction-scoped persistence the purchase
// orchestrator works through. Catalog and Inventory expose sibling module
// operations bound to the same transaction.
type TxRepository interface {
	InsertPurchase(ctx context.Context, input PurchaseInput, purchaseAmount float64) (int64, error)
	InsertLineAllocations(ctx context.Context, purchaseID int64, lines []LineAllocation) error
	InsertSupplierPayment(ctx context.Context, payment SupplierPayment) (int64, error)
	Catalog() catalog.TxCatalog
	Inventory() inventory.TxStore
}

// Repository persists purchases in PostgreSQL.
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

func (t *txRepository) InsertPurchase(ctx context.Context, input PurchaseInput, purchaseAmount float64) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchases
(party_name, purchase_date, purchase_amount, tax_pct, tax_amount, packing_amount, discount_amount,
 transport_name, transport_amount, consignment_number, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW()) RETURNING id`,
		input.PartyName, input.PurchaseDate, purchaseAmount, input.TaxPercentage, input.TaxAmount,
		input.PackingAmount, input.DiscountAmount, input.TransportName, input.TransportAmount,
		input.ConsignmentNumber).Scan(&id)
	return id, err
}

func (t *txRepository) InsertLineAllocations(ctx context.Context, purchaseID int64, lines []LineAllocation) error {
	for _, line := range lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO purchase_products
(purchase_id, product_id, quantity, rate_per_unit, total_amount, pct_of_purchase,
 allocated_tax, allocated_transport, allocated_packing, total_allocated_overhead, final_cost_per_unit)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			purchaseID, line.ProductID, line.Quantity, line.RatePerUnit, line.TotalAmount,
			line.PercentageOfPurchase, line.AllocatedTax, line.AllocatedTransport,
			line.AllocatedPacking, line.TotalAllocatedOverhead, line.FinalCostPerUnit)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepository) InsertSupplierPayment(ctx context.Context, payment SupplierPayment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_payments (purchase_id, amount, mode, payment_date)
VALUES ($1,$2,$3,$4) RETURNING id`,
		payment.PurchaseID, payment.Amount, payment.Mode, payment.PaymentDate).Scan(&id)
	return id, err
}

const purchaseColumns = `id, party_name, purchase_date, purchase_amount, tax_pct, tax_amount,
packing_amount, discount_amount, transport_name, transport_amount, consignment_number, created_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.PartyName, &p.PurchaseDate, &p.PurchaseAmount, &p.TaxPercentage,
		&p.TaxAmount, &p.PackingAmount, &p.DiscountAmount, &p.TransportName, &p.TransportAmount,
		&p.ConsignmentNumber, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrPurchaseNotFound
		}
		return Purchase{}, err
	}
	return p, nil
}

// GetPurchase returns a purchase header with its line allocations.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (PurchaseWithLines, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if err != nil {
		return PurchaseWithLines{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, rate_per_unit, total_amount, pct_of_purchase,
allocated_tax, allocated_transport, allocated_packing, total_allocated_overhead, final_cost_per_unit
FROM purchase_products WHERE purchase_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseWithLines{}, err
	}
	defer rows.Close()
	out := PurchaseWithLines{Purchase: p}
	for rows.Next() {
		var l LineAllocation
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.RatePerUnit, &l.TotalAmount,
			&l.PercentageOfPurchase, &l.AllocatedTax, &l.AllocatedTransport, &l.AllocatedPacking,
			&l.TotalAllocatedOverhead, &l.FinalCostPerUnit); err != nil {
			return PurchaseWithLines{}, err
		}
		out.Lines = append(out.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return PurchaseWithLines{}, err
	}
	payRows, err := r.pool.Query(ctx, `SELECT id, purchase_id, amount, mode, payment_date
FROM purchase_payments WHERE purchase_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseWithLines{}, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var sp SupplierPayment
		if err := payRows.Scan(&sp.ID, &sp.PurchaseID, &sp.Amount, &sp.Mode, &sp.PaymentDate); err != nil {
			return PurchaseWithLines{}, err
		}
		out.Payments = append(out.Payments, sp)
	}
	return out, payRows.Err()
}

// ListPurchases returns purchase headers within the date range, newest first.
func (r *Repository) ListPurchases(ctx context.Context, from, to *int64, limit int) ([]Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases
WHERE ($1::bigint IS NULL OR purchase_date >= to_timestamp($1))
  AND ($2::bigint IS NULL OR purchase_date <= to_timestamp($2))
ORDER BY purchase_date DESC, id DESC LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.PartyName, &p.PurchaseDate, &p.PurchaseAmount, &p.TaxPercentage,
			&p.TaxAmount, &p.PackingAmount, &p.DiscountAmount, &p.TransportName, &p.TransportAmount,
			&p.ConsignmentNumber, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
