package catalog

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// Product is a catalog entry referenced by id everywhere else. Identity is
// immutable; category fields are revisable.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	SubCategory string    `json:"sub_category"`
	Unit        string    `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput carries creatable/updatable product fields.
type ProductInput struct {
	Name        string
	Category    string
	SubCategory string
	Unit        string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category    string
	SubCategory string
	Search      string
	Limit       int
}

// Particular is a billing line-item name registered for autocomplete and
// product mapping. Names are deduplicated case-insensitively.
type Particular struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

// ParticularInput carries a name with its default discount.
type ParticularInput struct {
	Name               string
	DiscountPercentage float64
}

// Defaults applied when the resolver auto-creates a product for an unmapped
// particular name.
const (
	GenericCategory    = "General"
	GenericSubCategory = "Unclassified"
	GenericUnit        = "pieces"
)

var (
	// ErrProductNotFound indicates no active product matches.
	ErrProductNotFound = fmt.Errorf("product %w", shared.ErrNotFound)
	// ErrParticularNotFound indicates a missing particular.
	ErrParticularNotFound = fmt.Errorf("particular %w", shared.ErrNotFound)
)

var foldCaser = cases.Fold()

// NameKey normalises a name for case-insensitive dedup: trimmed, Unicode
// case-folded.
func NameKey(name string) string {
	return foldCaser.String(strings.TrimSpace(name))
}
