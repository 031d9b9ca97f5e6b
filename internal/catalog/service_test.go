package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

type memoryRepo struct {
	fakeCatalog
	particulars map[string]Particular
	nextPartID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{particulars: map[string]Particular{}}
}

func (m *memoryRepo) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if _, err := m.FindActiveProductByName(ctx, input.Name); err == nil {
		return Product{}, shared.ErrConflict
	}
	return m.InsertProduct(ctx, input)
}

func (m *memoryRepo) UpdateProduct(_ context.Context, id int64, input ProductInput) (Product, error) {
	for i, p := range m.products {
		if p.ID == id && p.IsActive {
			p.Name = input.Name
			p.Category = input.Category
			p.SubCategory = input.SubCategory
			p.Unit = input.Unit
			m.products[i] = p
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (m *memoryRepo) DeactivateProduct(_ context.Context, id int64) error {
	for i, p := range m.products {
		if p.ID == id && p.IsActive {
			m.products[i].IsActive = false
			return nil
		}
	}
	return ErrProductNotFound
}

func (m *memoryRepo) ListProducts(_ context.Context, _ ProductFilter) ([]Product, error) {
	out := []Product{}
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListParticulars(_ context.Context) ([]Particular, error) {
	out := []Particular{}
	for _, p := range m.particulars {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) UpsertParticulars(_ context.Context, inputs []ParticularInput) (int, error) {
	inserted := 0
	for _, in := range inputs {
		key := NameKey(in.Name)
		if _, ok := m.particulars[key]; ok {
			continue
		}
		m.nextPartID++
		m.particulars[key] = Particular{ID: m.nextPartID, Name: in.Name, DiscountPercentage: in.DiscountPercentage}
		inserted++
	}
	return inserted, nil
}

func TestCreateProductAppliesUnitDefault(t *testing.T) {
	svc := NewService(newMemoryRepo())

	product, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Saree", Category: "Clothing"})
	require.NoError(t, err)
	require.Equal(t, GenericUnit, product.Unit)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: "  ", Category: "Clothing"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateProduct(context.Background(), ProductInput{Name: "Saree", Category: ""})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeactivateThenGetProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	product, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Saree", Category: "Clothing"})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(context.Background(), product.ID))
	_, err = svc.GetProduct(context.Background(), product.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegisterParticularsIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	inputs := []ParticularInput{
		{Name: "Cotton Saree", DiscountPercentage: 5},
		{Name: "Towel"},
	}
	inserted, err := svc.RegisterParticulars(context.Background(), inputs)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	// Re-registering the same names, with different casing, inserts nothing.
	inserted, err = svc.RegisterParticulars(context.Background(), []ParticularInput{
		{Name: "cotton saree"},
		{Name: "TOWEL"},
	})
	require.NoError(t, err)
	require.Equal(t, 0, inserted)

	all, err := svc.ListParticulars(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRegisterParticularsSkipsBlanks(t *testing.T) {
	svc := NewService(newMemoryRepo())

	inserted, err := svc.RegisterParticulars(context.Background(), []ParticularInput{
		{Name: "  "},
		{Name: "Saree"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	_, err = svc.RegisterParticulars(context.Background(), []ParticularInput{{Name: " "}})
	require.ErrorIs(t, err, shared.ErrValidation)
}
