package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (PurchaseWithLines, error)
	ListPurchases(ctx context.Context, from, to *int64, limit int) ([]Purchase, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ValuationInvalidator drops cached stock valuation after ledger writes.
type ValuationInvalidator interface {
	InvalidateValuation(ctx context.Context)
}

// Service posts purchases: allocation, persistence and stock receipt run in
// one transaction.
type Service struct {
	repo     RepositoryPort
	ledger   *inventory.Ledger
	idem     IdempotencyPort
	audit    AuditPort
	valuator ValuationInvalidator
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, idem IdempotencyPort, audit AuditPort, valuator ValuationInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, idem: idem, audit: audit, valuator: valuator, logger: logger}
}

// CreatePurchase validates and posts a purchase. Every line's product must
// exist and be active; stock is received at the landed (allocated) unit cost.
func (s *Service) CreatePurchase(ctx context.Context, input PurchaseInput) (PurchaseWithLines, error) {
	if strings.TrimSpace(input.PartyName) == "" {
		return PurchaseWithLines{}, fmt.Errorf("%w: party name is required", shared.ErrValidation)
	}
	if input.PurchaseDate.IsZero() {
		input.PurchaseDate = time.Now().UTC()
	}

	allocations, err := Allocate(input.Lines, Overheads{
		Tax:       input.TaxAmount,
		Packing:   input.PackingAmount,
		Transport: input.TransportAmount,
	})
	if err != nil {
		return PurchaseWithLines{}, err
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "purchase"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return PurchaseWithLines{}, fmt.Errorf("%w: purchase already submitted", shared.ErrConflict)
			}
			return PurchaseWithLines{}, err
		}
	}

	purchaseAmount := 0.0
	for _, a := range allocations {
		purchaseAmount += a.TotalAmount
	}
	purchaseAmount = shared.Round2(purchaseAmount)

	var purchaseID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range input.Lines {
			if _, err := tx.Catalog().GetActiveProduct(ctx, line.ProductID); err != nil {
				return err
			}
		}

		id, err := tx.InsertPurchase(ctx, input, purchaseAmount)
		if err != nil {
			return err
		}
		purchaseID = id

		if err := tx.InsertLineAllocations(ctx, id, allocations); err != nil {
			return err
		}

		if input.PaymentAmount > 0 {
			mode := input.PaymentMode
			if mode == "" {
				mode = "cash"
			}
			if _, err := tx.InsertSupplierPayment(ctx, SupplierPayment{
				PurchaseID:  id,
				Amount:      shared.Round2(input.PaymentAmount),
				Mode:        mode,
				PaymentDate: input.PurchaseDate,
			}); err != nil {
				return err
			}
		}

		for _, a := range allocations {
			_, err := s.ledger.Receive(ctx, tx.Inventory(), inventory.ReceiveInput{
				ProductID:   a.ProductID,
				Quantity:    a.Quantity,
				CostPerUnit: a.FinalCostPerUnit,
				RefType:     "PURCHASE",
				RefID:       id,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if input.IdempotencyKey != "" && s.idem != nil {
			_ = s.idem.Delete(ctx, input.IdempotencyKey)
		}
		return PurchaseWithLines{}, err
	}

	if s.valuator != nil {
		s.valuator.InvalidateValuation(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "purchase:CREATE",
			Entity:   "purchase",
			EntityID: fmt.Sprintf("%d", purchaseID),
			Meta: map[string]any{
				"party_name": input.PartyName,
				"amount":     purchaseAmount,
				"lines":      len(allocations),
			},
		})
	}
	if s.logger != nil {
		s.logger.Info("purchase posted",
			slog.Int64("purchase_id", purchaseID),
			slog.Float64("amount", purchaseAmount),
			slog.Int("lines", len(allocations)))
	}

	return PurchaseWithLines{
		Purchase: Purchase{
			ID:                purchaseID,
			PartyName:         input.PartyName,
			PurchaseDate:      input.PurchaseDate,
			PurchaseAmount:    purchaseAmount,
			TaxPercentage:     input.TaxPercentage,
			TaxAmount:         input.TaxAmount,
			PackingAmount:     input.PackingAmount,
			DiscountAmount:    input.DiscountAmount,
			TransportName:     input.TransportName,
			TransportAmount:   input.TransportAmount,
			ConsignmentNumber: input.ConsignmentNumber,
		},
		Lines: allocations,
	}, nil
}

// GetPurchase returns a purchase with its allocations.
func (s *Service) GetPurchase(ctx context.Context, id int64) (PurchaseWithLines, error) {
	return s.repo.GetPurchase(ctx, id)
}

// ListPurchases returns purchase headers in a date range.
func (s *Service) ListPurchases(ctx context.Context, from, to *int64, limit int) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, from, to, limit)
}
