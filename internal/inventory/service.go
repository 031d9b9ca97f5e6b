package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetRecord(ctx context.Context, productID int64) (Record, error)
	ListRecords(ctx context.Context, lowStock float64) ([]Record, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	TotalValuation(ctx context.Context) (Valuation, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations not owned by an orchestrator:
// manual adjustments and the read-only interfaces reporting consumes.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
	audit  AuditPort
	cache  *ValuationCache
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, audit AuditPort, cache *ValuationCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit, cache: cache, logger: logger}
}

// Ledger exposes the costing engine for orchestrators running their own
// transactions.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// PostAdjustment applies a signed manual correction in its own transaction.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustInput) (Record, error) {
	if input.ProductID == 0 {
		return Record{}, fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	var rec Record
	err := s.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		var err error
		rec, err = s.ledger.Adjust(ctx, store, input)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	if err := s.cache.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate valuation cache", slog.Any("error", err))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:ADJUSTMENT",
			Entity:   "inventory_record",
			EntityID: fmt.Sprintf("%d", input.ProductID),
			Meta: map[string]any{
				"qty":     input.Quantity,
				"remarks": input.Remarks,
			},
		})
	}
	return rec, nil
}

// GetRecord returns the current record for a product.
func (s *Service) GetRecord(ctx context.Context, productID int64) (Record, error) {
	return s.repo.GetRecord(ctx, productID)
}

// ListRecords returns current stock, optionally filtered to low stock.
func (s *Service) ListRecords(ctx context.Context, lowStock float64) ([]Record, error) {
	return s.repo.ListRecords(ctx, lowStock)
}

// ListMovements returns ledger history for a product and date range.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID == 0 {
		return nil, fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	return s.repo.ListMovements(ctx, filter)
}

// TotalValuation returns the aggregate stock value, served from cache when
// warm.
func (s *Service) TotalValuation(ctx context.Context) (Valuation, error) {
	return s.cache.Fetch(ctx, s.repo.TotalValuation)
}

// InvalidateValuation drops the cached valuation; called by orchestrators
// after they commit ledger mutations.
func (s *Service) InvalidateValuation(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate valuation cache", slog.Any("error", err))
	}
}
