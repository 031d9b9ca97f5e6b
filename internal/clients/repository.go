package clients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists clients in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, phone, city, is_active, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.City, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrClientNotFound
		}
		return Client{}, err
	}
	return c, nil
}

// GetClient fetches an active client by id.
func (r *Repository) GetClient(ctx context.Context, id int64) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1 AND is_active`, id))
}

// ClientExists reports whether an active client with the id exists.
func (r *Repository) ClientExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id=$1 AND is_active)`, id).Scan(&exists)
	return exists, err
}

// CreateClient inserts a client.
func (r *Repository) CreateClient(ctx context.Context, input ClientInput) (Client, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO clients (name, phone, city, is_active, created_at, updated_at)
VALUES ($1,$2,$3,TRUE,NOW(),NOW()) RETURNING `+clientColumns, input.Name, input.Phone, input.City)
	return scanClient(row)
}

// UpdateClient revises the mutable fields of an active client.
func (r *Repository) UpdateClient(ctx context.Context, id int64, input ClientInput) (Client, error) {
	row := r.pool.QueryRow(ctx, `UPDATE clients SET name=$2, phone=$3, city=$4, updated_at=NOW()
WHERE id=$1 AND is_active RETURNING `+clientColumns, id, input.Name, input.Phone, input.City)
	return scanClient(row)
}

// DeactivateClient soft-deletes a client. Billing history stays intact.
func (r *Repository) DeactivateClient(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// ListClients returns active clients, optionally filtered by a name search.
func (r *Repository) ListClients(ctx context.Context, search string, limit int) ([]Client, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients
WHERE is_active AND ($1 = '' OR name ILIKE '%' || $1 || '%')
ORDER BY name LIMIT $2`, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Client{}
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.City, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
