package clients

import (
	"fmt"
	"time"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// Client is a billing customer.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	City      string    `json:"city"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientInput carries creatable/updatable fields.
type ClientInput struct {
	Name  string
	Phone string
	City  string
}

// ErrClientNotFound indicates no active client matches.
var ErrClientNotFound = fmt.Errorf("client %w", shared.ErrNotFound)
