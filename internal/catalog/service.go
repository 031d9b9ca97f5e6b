package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetActiveProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	ListParticulars(ctx context.Context) ([]Particular, error)
	UpsertParticulars(ctx context.Context, inputs []ParticularInput) (int, error)
}

// Service handles catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) validateProduct(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Category) == "" {
		return fmt.Errorf("%w: category is required", shared.ErrValidation)
	}
	return nil
}

// GetProduct fetches an active product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetActiveProduct(ctx, id)
}

// CreateProduct registers a new product.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if err := s.validateProduct(input); err != nil {
		return Product{}, err
	}
	if input.Unit == "" {
		input.Unit = GenericUnit
	}
	return s.repo.CreateProduct(ctx, input)
}

// UpdateProduct revises category/name fields of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput) (Product, error) {
	if err := s.validateProduct(input); err != nil {
		return Product{}, err
	}
	return s.repo.UpdateProduct(ctx, id, input)
}

// DeactivateProduct soft-deletes a product.
func (s *Service) DeactivateProduct(ctx context.Context, id int64) error {
	return s.repo.DeactivateProduct(ctx, id)
}

// ListProducts lists active products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// ListParticulars lists registered particulars.
func (s *Service) ListParticulars(ctx context.Context) ([]Particular, error) {
	return s.repo.ListParticulars(ctx)
}

// RegisterParticulars upserts names with case-insensitive dedup. Calling it
// twice with the same names inserts each name at most once.
func (s *Service) RegisterParticulars(ctx context.Context, inputs []ParticularInput) (int, error) {
	cleaned := make([]ParticularInput, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.Name) == "" {
			continue
		}
		cleaned = append(cleaned, in)
	}
	if len(cleaned) == 0 {
		return 0, fmt.Errorf("%w: at least one particular name is required", shared.ErrValidation)
	}
	return s.repo.UpsertParticulars(ctx, cleaned)
}
