package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	store := NewTxStore(tx)
	if err := fn(ctx, store); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// NewTxStore wraps an open transaction so other modules can run ledger
// operations inside their own unit of work.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) EnsureRecordForUpdate(ctx context.Context, productID int64) (Record, error) {
	// Upsert-with-default instead of find-then-construct so concurrent first
	// purchases of the same product cannot create duplicate records.
	if _, err := s.tx.Exec(ctx, `INSERT INTO inventory_records (product_id, available_qty, weighted_avg_cost, total_value, last_updated)
VALUES ($1, 0, 0, 0, NOW())
ON CONFLICT (product_id) DO NOTHING`, productID); err != nil {
		return Record{}, err
	}
	return s.GetRecordForUpdate(ctx, productID)
}

func (s *txStore) GetRecordForUpdate(ctx context.Context, productID int64) (Record, error) {
	return s.scanRecord(s.tx.QueryRow(ctx, `SELECT product_id, available_qty, weighted_avg_cost, total_value, last_updated
FROM inventory_records WHERE product_id=$1 FOR UPDATE`, productID))
}

func (s *txStore) GetRecord(ctx context.Context, productID int64) (Record, error) {
	return s.scanRecord(s.tx.QueryRow(ctx, `SELECT product_id, available_qty, weighted_avg_cost, total_value, last_updated
FROM inventory_records WHERE product_id=$1`, productID))
}

func (s *txStore) scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ProductID, &rec.AvailableQuantity, &rec.WeightedAverageCost, &rec.TotalValue, &rec.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *txStore) SaveRecord(ctx context.Context, rec Record) error {
	_, err := s.tx.Exec(ctx, `UPDATE inventory_records
SET available_qty=$2, weighted_avg_cost=$3, total_value=$4, last_updated=$5
WHERE product_id=$1`, rec.ProductID, rec.AvailableQuantity, rec.WeightedAverageCost, rec.TotalValue, rec.LastUpdated)
	return err
}

func (s *txStore) AppendMovement(ctx context.Context, mv Movement) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO inventory_movements
(product_id, movement_type, qty, cost_per_unit, total_value, ref_type, ref_id, balance_qty, balance_value, remarks, moved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		mv.ProductID, string(mv.Type), mv.Quantity, mv.CostPerUnit, mv.TotalValue,
		mv.RefType, nullInt(mv.RefID), mv.BalanceQuantity, mv.BalanceValue, mv.Remarks, mv.MovedAt).Scan(&id)
	return id, err
}

// GetRecord reads a single record outside any transaction.
func (r *Repository) GetRecord(ctx context.Context, productID int64) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT product_id, available_qty, weighted_avg_cost, total_value, last_updated
FROM inventory_records WHERE product_id=$1`, productID).
		Scan(&rec.ProductID, &rec.AvailableQuantity, &rec.WeightedAverageCost, &rec.TotalValue, &rec.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListRecords returns current records, optionally only those at or below the
// low-stock threshold.
func (r *Repository) ListRecords(ctx context.Context, lowStock float64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, available_qty, weighted_avg_cost, total_value, last_updated
FROM inventory_records
WHERE ($1 <= 0 OR available_qty <= $1)
ORDER BY last_updated DESC`, lowStock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ProductID, &rec.AvailableQuantity, &rec.WeightedAverageCost, &rec.TotalValue, &rec.LastUpdated); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListMovements returns the append-only history for a product.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, movement_type, qty, cost_per_unit, total_value, ref_type, COALESCE(ref_id, 0), balance_qty, balance_value, remarks, moved_at
FROM inventory_movements
WHERE product_id=$1 AND moved_at BETWEEN COALESCE($2, '-infinity') AND COALESCE($3, 'infinity')
ORDER BY id DESC
LIMIT $4`, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.ProductID, &mv.Type, &mv.Quantity, &mv.CostPerUnit, &mv.TotalValue,
			&mv.RefType, &mv.RefID, &mv.BalanceQuantity, &mv.BalanceValue, &mv.Remarks, &mv.MovedAt); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

// TotalValuation sums quantity and value across all records.
func (r *Repository) TotalValuation(ctx context.Context) (Valuation, error) {
	var v Valuation
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(available_qty),0), COALESCE(SUM(total_value),0) FROM inventory_records`).
		Scan(&v.TotalQuantity, &v.TotalValue)
	if err != nil {
		return Valuation{}, err
	}
	v.TakenAt = time.Now().UTC()
	return v, nil
}

// InsertValuationSnapshot records a point-in-time total valuation.
func (r *Repository) InsertValuationSnapshot(ctx context.Context, v Valuation) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO inventory_valuation_snapshots (taken_at, total_qty, total_value)
VALUES ($1,$2,$3)`, v.TakenAt, v.TotalQuantity, v.TotalValue)
	return err
}

// ListValuationSnapshots returns recent snapshots, newest first.
func (r *Repository) ListValuationSnapshots(ctx context.Context, limit int) ([]Valuation, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx, `SELECT taken_at, total_qty, total_value
FROM inventory_valuation_snapshots ORDER BY taken_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	snapshots := []Valuation{}
	for rows.Next() {
		var v Valuation
		if err := rows.Scan(&v.TakenAt, &v.TotalQuantity, &v.TotalValue); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, v)
	}
	return snapshots, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
