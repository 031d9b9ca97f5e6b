package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetClient(ctx context.Context, id int64) (Client, error)
	ClientExists(ctx context.Context, id int64) (bool, error)
	CreateClient(ctx context.Context, input ClientInput) (Client, error)
	UpdateClient(ctx context.Context, id int64, input ClientInput) (Client, error)
	DeactivateClient(ctx context.Context, id int64) error
	ListClients(ctx context.Context, search string, limit int) ([]Client, error)
}

// Service handles client directory logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func validateClient(input ClientInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: client name is required", shared.ErrValidation)
	}
	return nil
}

// GetClient fetches an active client by id.
func (s *Service) GetClient(ctx context.Context, id int64) (Client, error) {
	return s.repo.GetClient(ctx, id)
}

// IsPresent reports whether an active client with the id exists.
func (s *Service) IsPresent(ctx context.Context, id int64) (bool, error) {
	return s.repo.ClientExists(ctx, id)
}

// CreateClient registers a new client.
func (s *Service) CreateClient(ctx context.Context, input ClientInput) (Client, error) {
	if err := validateClient(input); err != nil {
		return Client{}, err
	}
	return s.repo.CreateClient(ctx, input)
}

// UpdateClient revises an existing client.
func (s *Service) UpdateClient(ctx context.Context, id int64, input ClientInput) (Client, error) {
	if err := validateClient(input); err != nil {
		return Client{}, err
	}
	return s.repo.UpdateClient(ctx, id, input)
}

// DeactivateClient soft-deletes a client.
func (s *Service) DeactivateClient(ctx context.Context, id int64) error {
	return s.repo.DeactivateClient(ctx, id)
}

// ListClients lists active clients.
func (s *Service) ListClients(ctx context.Context, search string, limit int) ([]Client, error) {
	return s.repo.ListClients(ctx, search, limit)
}
