package purchase

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vastra-erp/vastra-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for purchases.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the purchase handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchases", h.list)
	r.Post("/purchases", h.create)
	r.Get("/purchases/{id}", h.get)
}

type purchaseLineRequest struct {
	ProductID   int64   `json:"product_id" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	RatePerUnit float64 `json:"rate_per_unit" validate:"gt=0"`
	TotalAmount float64 `json:"total_amount" validate:"gt=0"`
}

type purchaseRequest struct {
	PartyName         string                `json:"party_name" validate:"required"`
	PurchaseDate      string                `json:"purchase_date"`
	Lines             []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
	TaxPercentage     float64               `json:"tax_percentage" validate:"gte=0"`
	TaxAmount         float64               `json:"tax_amount" validate:"gte=0"`
	PackingAmount     float64               `json:"packing_amount" validate:"gte=0"`
	DiscountAmount    float64               `json:"discount_amount" validate:"gte=0"`
	TransportName     string                `json:"transport_name"`
	TransportAmount   float64               `json:"transport_amount" validate:"gte=0"`
	ConsignmentNumber string                `json:"consignment_number"`
	PaymentAmount     float64               `json:"payment_amount" validate:"gte=0"`
	PaymentMode       string                `json:"payment_mode"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var purchaseDate time.Time
	if req.PurchaseDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "purchase_date must be YYYY-MM-DD")
			return
		}
		purchaseDate = parsed
	}

	lines := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, LineInput{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			RatePerUnit: l.RatePerUnit,
			TotalAmount: l.TotalAmount,
		})
	}

	result, err := h.service.CreatePurchase(r.Context(), PurchaseInput{
		PartyName:         req.PartyName,
		PurchaseDate:      purchaseDate,
		Lines:             lines,
		TaxPercentage:     req.TaxPercentage,
		TaxAmount:         req.TaxAmount,
		PackingAmount:     req.PackingAmount,
		DiscountAmount:    req.DiscountAmount,
		TransportName:     req.TransportName,
		TransportAmount:   req.TransportAmount,
		ConsignmentNumber: req.ConsignmentNumber,
		PaymentAmount:     req.PaymentAmount,
		PaymentMode:       req.PaymentMode,
		IdempotencyKey:    r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.logger.Error("create purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase id")
		return
	}
	result, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to *int64
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			ts := t.Unix()
			from = &ts
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			ts := t.Add(24*time.Hour - time.Second).Unix()
			to = &ts
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	purchases, err := h.service.ListPurchases(r.Context(), from, to, limit)
	if err != nil {
		h.logger.Error("list purchases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchases)
}
