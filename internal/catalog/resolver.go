package catalog

import (
	"context"
	"errors"
	"strings"
)

// ProductResolver maps a free-text particular name to a product. The
// matching policy is injectable so exact, fuzzy and auto-create behaviour
// can be swapped or tested independently.
type ProductResolver interface {
	// Resolve returns the matched product and whether it was newly created.
	Resolve(ctx context.Context, store TxCatalog, name string) (Product, bool, error)
}

// MappingResolver is the default policy: exact case-insensitive match,
// then contains-match, then auto-create a generic product so the sale can
// proceed. Catalog completeness is eventual, not required.
type MappingResolver struct{}

// NewMappingResolver builds the default resolver.
func NewMappingResolver() *MappingResolver {
	return &MappingResolver{}
}

// Resolve implements ProductResolver.
func (r *MappingResolver) Resolve(ctx context.Context, store TxCatalog, name string) (Product, bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Product{}, false, ErrProductNotFound
	}

	product, err := store.FindActiveProductByName(ctx, trimmed)
	if err == nil {
		return product, false, nil
	}
	if !errors.Is(err, ErrProductNotFound) {
		return Product{}, false, err
	}

	product, err = store.FindActiveProductByNameContains(ctx, trimmed)
	if err == nil {
		return product, false, nil
	}
	if !errors.Is(err, ErrProductNotFound) {
		return Product{}, false, err
	}

	created, err := store.InsertProduct(ctx, ProductInput{
		Name:        trimmed,
		Category:    GenericCategory,
		SubCategory: GenericSubCategory,
		Unit:        GenericUnit,
	})
	if err != nil {
		return Product{}, false, err
	}
	return created, true, nil
}
