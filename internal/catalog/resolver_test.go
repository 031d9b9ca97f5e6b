package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products []Product
	nextID   int64
}

func (f *fakeCatalog) GetActiveProduct(_ context.Context, id int64) (Product, error) {
	for _, p := range f.products {
		if p.ID == id && p.IsActive {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (f *fakeCatalog) FindActiveProductByName(_ context.Context, name string) (Product, error) {
	key := NameKey(name)
	for _, p := range f.products {
		if p.IsActive && NameKey(p.Name) == key {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (f *fakeCatalog) FindActiveProductByNameContains(_ context.Context, name string) (Product, error) {
	key := NameKey(name)
	for _, p := range f.products {
		if p.IsActive && containsFold(p.Name, key) {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func containsFold(haystack, foldedNeedle string) bool {
	folded := NameKey(haystack)
	for i := 0; i+len(foldedNeedle) <= len(folded); i++ {
		if folded[i:i+len(foldedNeedle)] == foldedNeedle {
			return true
		}
	}
	return false
}

func (f *fakeCatalog) InsertProduct(_ context.Context, input ProductInput) (Product, error) {
	f.nextID++
	p := Product{
		ID:          f.nextID,
		Name:        input.Name,
		Category:    input.Category,
		SubCategory: input.SubCategory,
		Unit:        input.Unit,
		IsActive:    true,
	}
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeCatalog) UpsertParticulars(_ context.Context, inputs []ParticularInput) (int, error) {
	return len(inputs), nil
}

func TestResolveExactMatchWins(t *testing.T) {
	store := &fakeCatalog{products: []Product{
		{ID: 1, Name: "Cotton Saree", IsActive: true},
		{ID: 2, Name: "Saree", IsActive: true},
	}, nextID: 2}
	resolver := NewMappingResolver()

	product, created, err := resolver.Resolve(context.Background(), store, "saree")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, int64(2), product.ID)
}

func TestResolveFallsBackToContains(t *testing.T) {
	store := &fakeCatalog{products: []Product{
		{ID: 1, Name: "Silk Saree Premium", IsActive: true},
	}, nextID: 1}
	resolver := NewMappingResolver()

	product, created, err := resolver.Resolve(context.Background(), store, "silk saree")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, int64(1), product.ID)
}

func TestResolveCreatesGenericProduct(t *testing.T) {
	store := &fakeCatalog{}
	resolver := NewMappingResolver()

	product, created, err := resolver.Resolve(context.Background(), store, "Handloom Towel")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Handloom Towel", product.Name)
	require.Equal(t, GenericCategory, product.Category)
	require.Equal(t, GenericSubCategory, product.SubCategory)
	require.Equal(t, GenericUnit, product.Unit)

	// Resolving again finds the product instead of creating a duplicate.
	again, created, err := resolver.Resolve(context.Background(), store, "handloom towel")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, product.ID, again.ID)
	require.Len(t, store.products, 1)
}

func TestResolveRejectsBlankName(t *testing.T) {
	resolver := NewMappingResolver()
	_, _, err := resolver.Resolve(context.Background(), &fakeCatalog{}, "   ")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestResolveSkipsInactiveProducts(t *testing.T) {
	store := &fakeCatalog{products: []Product{
		{ID: 1, Name: "Saree", IsActive: false},
	}, nextID: 1}
	resolver := NewMappingResolver()

	product, created, err := resolver.Resolve(context.Background(), store, "Saree")
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, int64(1), product.ID)
}
