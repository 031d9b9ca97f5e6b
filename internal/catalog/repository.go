package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

const uniqueViolation = "23505"

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxCatalog exposes the catalog operations orchestrators run inside their
// own transaction: product resolution and particular registration.
type TxCatalog interface {
	GetActiveProduct(ctx context.Context, id int64) (Product, error)
	FindActiveProductByName(ctx context.Context, name string) (Product, error)
	FindActiveProductByNameContains(ctx context.Context, name string) (Product, error)
	InsertProduct(ctx context.Context, input ProductInput) (Product, error)
	UpsertParticulars(ctx context.Context, inputs []ParticularInput) (int, error)
}

// NewTxCatalog wraps an open transaction.
func NewTxCatalog(tx pgx.Tx) TxCatalog {
	return &txCatalog{q: tx}
}

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCatalog struct {
	q querier
}

const productColumns = `id, name, category, sub_category, unit, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.SubCategory, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (c *txCatalog) GetActiveProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(c.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 AND is_active`, id))
}

func (c *txCatalog) FindActiveProductByName(ctx context.Context, name string) (Product, error) {
	return scanProduct(c.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name_key=$1 AND is_active`, NameKey(name)))
}

func (c *txCatalog) FindActiveProductByNameContains(ctx context.Context, name string) (Product, error) {
	pattern := "%" + NameKey(name) + "%"
	return scanProduct(c.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products
WHERE name_key LIKE $1 AND is_active ORDER BY id LIMIT 1`, pattern))
}

func (c *txCatalog) InsertProduct(ctx context.Context, input ProductInput) (Product, error) {
	row := c.q.QueryRow(ctx, `INSERT INTO products (name, name_key, category, sub_category, unit, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,TRUE,NOW(),NOW()) RETURNING `+productColumns,
		input.Name, NameKey(input.Name), input.Category, input.SubCategory, input.Unit)
	p, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Product{}, fmt.Errorf("%w: product %q", shared.ErrConflict, input.Name)
		}
		return Product{}, err
	}
	return p, nil
}

func (c *txCatalog) UpsertParticulars(ctx context.Context, inputs []ParticularInput) (int, error) {
	inserted := 0
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		key := NameKey(in.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		tag, err := c.q.Exec(ctx, `INSERT INTO particulars (name, name_key, discount_pct)
VALUES ($1,$2,$3) ON CONFLICT (name_key) DO NOTHING`, in.Name, key, in.DiscountPercentage)
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// pool-backed reads and CRUD below.

func (r *Repository) catalog() *txCatalog {
	return &txCatalog{q: r.pool}
}

// GetActiveProduct fetches an active product by id.
func (r *Repository) GetActiveProduct(ctx context.Context, id int64) (Product, error) {
	return r.catalog().GetActiveProduct(ctx, id)
}

// CreateProduct inserts a product, surfacing duplicate names as conflicts.
func (r *Repository) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	return r.catalog().InsertProduct(ctx, input)
}

// UpdateProduct revises the mutable fields of an active product.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products
SET name=$2, name_key=$3, category=$4, sub_category=$5, unit=$6, updated_at=NOW()
WHERE id=$1 AND is_active RETURNING `+productColumns,
		id, input.Name, NameKey(input.Name), input.Category, input.SubCategory, input.Unit)
	p, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Product{}, fmt.Errorf("%w: product %q", shared.ErrConflict, input.Name)
		}
		return Product{}, err
	}
	return p, nil
}

// DeactivateProduct soft-deletes a product. Identity is never reused.
func (r *Repository) DeactivateProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListProducts returns active products matching the filter.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
WHERE is_active
  AND ($1 = '' OR category = $1)
  AND ($2 = '' OR sub_category = $2)
  AND ($3 = '' OR name_key LIKE '%' || $3 || '%')
ORDER BY name
LIMIT $4`, filter.Category, filter.SubCategory, NameKey(filter.Search), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.SubCategory, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListParticulars returns all registered particulars.
func (r *Repository) ListParticulars(ctx context.Context) ([]Particular, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, discount_pct FROM particulars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	particulars := []Particular{}
	for rows.Next() {
		var p Particular
		if err := rows.Scan(&p.ID, &p.Name, &p.DiscountPercentage); err != nil {
			return nil, err
		}
		particulars = append(particulars, p)
	}
	return particulars, rows.Err()
}

// UpsertParticulars registers names outside any orchestrator transaction.
func (r *Repository) UpsertParticulars(ctx context.Context, inputs []ParticularInput) (int, error) {
	return r.catalog().UpsertParticulars(ctx, inputs)
}
