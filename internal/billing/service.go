package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vastra-erp/vastra-erp/internal/catalog"
	"github.com/vastra-erp/vastra-erp/internal/inventory"
	"github.com/vastra-erp/vastra-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoiceDetails(ctx context.Context, invoiceID int64) ([]InvoiceDetail, error)
	ProfitSummary(ctx context.Context, invoiceID int64) (totalCost, totalProfit float64, err error)
	ListInvoicesByClient(ctx context.Context, clientID int64, limit int) ([]Invoice, error)
	GetOutstanding(ctx context.Context, clientID int64) (Outstanding, error)
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

// Service posts bills. A bill is one transaction: payment, invoice, costed
// lines, stock consumption, profit records, particular registration and the
// outstanding recompute commit together or not at all.
type Service struct {
	repo     RepositoryPort
	ledger   *inventory.Ledger
	resolver catalog.ProductResolver
	idem     IdempotencyPort
	audit    AuditPort
	valuator ValuationInvalidator
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, resolver catalog.ProductResolver, idem IdempotencyPort, audit AuditPort, valuator ValuationInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, resolver: resolver, idem: idem, audit: audit, valuator: valuator, logger: logger}
}

// CreateBill validates and posts a bill.
func (s *Service) CreateBill(ctx context.Context, input BillInput) (BillResult, error) {
	if err := validateBill(input); err != nil {
		return BillResult{}, err
	}
	if input.InvoiceDate.IsZero() {
		input.InvoiceDate = time.Now().UTC()
	}
	if input.Payment.PaymentDate.IsZero() {
		input.Payment.PaymentDate = input.InvoiceDate
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "billing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return BillResult{}, fmt.Errorf("%w: bill already submitted", shared.ErrConflict)
			}
			return BillResult{}, err
		}
	}

	var result BillResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := s.postBill(ctx, tx, 0, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if input.IdempotencyKey != "" && s.idem != nil {
			_ = s.idem.Delete(ctx, input.IdempotencyKey)
		}
		return BillResult{}, err
	}

	s.afterCommit(ctx, "billing:CREATE", result, input)
	return result, nil
}

// UpdateBill replaces the lines of an existing invoice and reruns the full
// pipeline. Ledger movements are append-only, so replacement lines consume
// anew; prior movements are not reversed.
func (s *Service) UpdateBill(ctx context.Context, invoiceID int64, input BillInput) (BillResult, error) {
	if invoiceID == 0 {
		return BillResult{}, fmt.Errorf("%w: invoice id is required", shared.ErrValidation)
	}
	if err := validateBill(input); err != nil {
		return BillResult{}, err
	}
	if input.InvoiceDate.IsZero() {
		input.InvoiceDate = time.Now().UTC()
	}

	var result BillResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		r, err := s.postBill(ctx, tx, invoiceID, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return BillResult{}, err
	}

	s.afterCommit(ctx, "billing:UPDATE", result, input)
	return result, nil
}

// postBill runs the shared create/update pipeline inside tx. invoiceID zero
// means create.
func (s *Service) postBill(ctx context.Context, tx TxRepository, invoiceID int64, input BillInput) (BillResult, error) {
	present, err := tx.ClientExists(ctx, input.ClientID)
	if err != nil {
		return BillResult{}, err
	}
	if !present {
		return BillResult{}, fmt.Errorf("client %d %w", input.ClientID, shared.ErrNotFound)
	}

	costed, err := costLines(ctx, tx.Catalog(), tx.Inventory(), s.resolver, s.ledger, input.Lines)
	if err != nil {
		return BillResult{}, err
	}

	var paymentID int64
	if input.Payment.Amount > 0 {
		paymentID, err = tx.InsertPayment(ctx, input.ClientID, input.Payment)
		if err != nil {
			return BillResult{}, err
		}
	}

	invoice := Invoice{
		ID:             invoiceID,
		ClientID:       input.ClientID,
		PaymentID:      paymentID,
		InvoiceDate:    input.InvoiceDate,
		SubTotal:       shared.Round2(input.SubTotal),
		TaxPct:         input.TaxPct,
		TaxAmount:      shared.Round2(input.TaxAmount),
		DiscountPct:    input.DiscountPct,
		DiscountAmount: shared.Round2(input.DiscountAmount),
		GrandTotal:     input.GrandTotal,
		Remarks:        input.Remarks,
	}
	if invoiceID == 0 {
		invoiceID, err = tx.InsertInvoice(ctx, invoice)
		if err != nil {
			return BillResult{}, err
		}
	} else {
		if err := tx.UpdateInvoice(ctx, invoice); err != nil {
			return BillResult{}, err
		}
		if err := tx.DeleteInvoiceDetails(ctx, invoiceID); err != nil {
			return BillResult{}, err
		}
	}

	var warnings []string
	var totalProfit float64
	particulars := make([]catalog.ParticularInput, 0, len(costed))

	for i, line := range costed {
		detail := InvoiceDetail{
			InvoiceID:        invoiceID,
			SlNo:             line.SlNo,
			Particular:       line.Particular,
			Amount:           line.Amount,
			Quantity:         line.Quantity,
			DiscountPct:      line.DiscountPct,
			Total:            line.Total,
			DiscountTotal:    shared.Round2(line.Amount*line.Quantity - line.Total),
			QuantityType:     line.QuantityType,
			Verified:         line.Verified,
			CostPricePerUnit: line.CostPricePerUnit,
			TotalCostPrice:   line.TotalCostPrice,
			ProfitAmount:     line.ProfitAmount,
			ProfitPct:        line.ProfitPct,
		}
		if line.Mapped {
			pid := line.ProductID
			detail.ProductID = &pid
		}
		if err := tx.InsertInvoiceDetail(ctx, detail); err != nil {
			return BillResult{}, err
		}
		totalProfit += line.ProfitAmount

		if line.Mapped {
			_, _, err := s.ledger.Consume(ctx, tx.Inventory(), inventory.ConsumeInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				RefType:   "SALE",
				RefID:     invoiceID,
			})
			if err != nil {
				var short *shared.InsufficientStockError
				if errors.As(err, &short) {
					warnings = append(warnings, fmt.Sprintf(
						"line %d (%s): insufficient stock, requested %.2f available %.2f; sold without stock movement",
						i+1, line.Particular, short.Requested, short.Available))
				} else if errors.Is(err, inventory.ErrRecordNotFound) {
					warnings = append(warnings, fmt.Sprintf(
						"line %d (%s): no stock record; sold without stock movement", i+1, line.Particular))
				} else {
					return BillResult{}, err
				}
			}

			if err := tx.InsertSaleProfit(ctx, SaleProfit{
				InvoiceID:           invoiceID,
				ProductID:           line.ProductID,
				ClientID:            input.ClientID,
				QuantitySold:        line.Quantity,
				SellingPricePerUnit: line.Amount,
				CostPricePerUnit:    line.CostPricePerUnit,
				TotalRevenue:        line.Total,
				TotalCost:           line.TotalCostPrice,
				GrossProfit:         line.ProfitAmount,
				ProfitPct:           line.ProfitPct,
				SaleDate:            input.InvoiceDate,
			}); err != nil {
				return BillResult{}, err
			}
		}

		particulars = append(particulars, catalog.ParticularInput{Name: line.Particular})
	}

	if _, err := tx.Catalog().UpsertParticulars(ctx, particulars); err != nil {
		return BillResult{}, err
	}

	purchased, err := tx.SumClientInvoiced(ctx, input.ClientID)
	if err != nil {
		return BillResult{}, err
	}
	paid, err := tx.SumClientPaid(ctx, input.ClientID)
	if err != nil {
		return BillResult{}, err
	}
	if err := tx.SaveOutstanding(ctx, Outstanding{
		ClientID:        input.ClientID,
		PurchasedAmount: shared.Round2(purchased),
		PaymentAmount:   shared.Round2(paid),
		Modified:        time.Now().UTC(),
	}); err != nil {
		return BillResult{}, err
	}

	return BillResult{
		InvoiceID:   invoiceID,
		PaymentID:   paymentID,
		GrandTotal:  input.GrandTotal,
		TotalProfit: shared.Round2(totalProfit),
		Warnings:    warnings,
	}, nil
}

func (s *Service) afterCommit(ctx context.Context, action string, result BillResult, input BillInput) {
	if s.valuator != nil {
		s.valuator.InvalidateValuation(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   action,
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", result.InvoiceID),
			Meta: map[string]any{
				"client_id":   input.ClientID,
				"grand_total": result.GrandTotal,
				"warnings":    len(result.Warnings),
			},
		})
	}
	if s.logger != nil {
		s.logger.Info("bill posted",
			slog.Int64("invoice_id", result.InvoiceID),
			slog.Int64("client_id", input.ClientID),
			slog.Float64("grand_total", result.GrandTotal),
			slog.Int("warnings", len(result.Warnings)))
	}
}

// GetInvoice returns an invoice with its lines and aggregate profit. The
// detail and summary reads fan out concurrently.
func (s *Service) GetInvoice(ctx context.Context, id int64) (InvoiceWithDetails, error) {
	invoice, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceWithDetails{}, err
	}

	var (
		details     []InvoiceDetail
		totalCost   float64
		totalProfit float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = s.repo.ListInvoiceDetails(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		totalCost, totalProfit, err = s.repo.ProfitSummary(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return InvoiceWithDetails{}, err
	}

	return InvoiceWithDetails{
		Invoice:     invoice,
		Details:     details,
		TotalCost:   shared.Round2(totalCost),
		TotalProfit: shared.Round2(totalProfit),
	}, nil
}

// ListInvoicesByClient returns a client's invoices.
func (s *Service) ListInvoicesByClient(ctx context.Context, clientID int64, limit int) ([]Invoice, error) {
	if clientID == 0 {
		return nil, fmt.Errorf("%w: client is required", shared.ErrValidation)
	}
	return s.repo.ListInvoicesByClient(ctx, clientID, limit)
}

// GetOutstanding returns the running balance for a client.
func (s *Service) GetOutstanding(ctx context.Context, clientID int64) (Outstanding, error) {
	if clientID == 0 {
		return Outstanding{}, fmt.Errorf("%w: client is required", shared.ErrValidation)
	}
	return s.repo.GetOutstanding(ctx, clientID)
}
