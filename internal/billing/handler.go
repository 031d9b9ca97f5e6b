package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vastra-erp/vastra-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for billing.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the billing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/bills", h.create)
	r.Put("/bills/{id}", h.update)
	r.Get("/invoices/{id}", h.get)
	r.Get("/clients/{id}/invoices", h.listByClient)
	r.Get("/clients/{id}/outstanding", h.outstanding)
}

type billLineRequest struct {
	SlNo         int     `json:"sl_no"`
	Particular   string  `json:"particular" validate:"required"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	DiscountPct  float64 `json:"discount_pct" validate:"gte=0,lte=100"`
	Total        float64 `json:"total" validate:"gte=0"`
	QuantityType string  `json:"quantity_type"`
	Verified     bool    `json:"verified"`
}

type billRequest struct {
	ClientID       int64             `json:"client_id" validate:"required"`
	InvoiceDate    string            `json:"invoice_date"`
	Lines          []billLineRequest `json:"lines" validate:"required,min=1,dive"`
	SubTotal       float64           `json:"sub_total" validate:"gte=0"`
	TaxPct         float64           `json:"tax_pct" validate:"gte=0"`
	TaxAmount      float64           `json:"tax_amount" validate:"gte=0"`
	DiscountPct    float64           `json:"discount_pct" validate:"gte=0,lte=100"`
	DiscountAmount float64           `json:"discount_amount" validate:"gte=0"`
	GrandTotal     float64           `json:"grand_total" validate:"gte=0"`
	Remarks        string            `json:"remarks"`
	PaymentAmount  float64           `json:"payment_amount" validate:"gte=0"`
	PaymentMode    string            `json:"payment_mode"`
}

func (h *Handler) toInput(r *http.Request, req billRequest) (BillInput, error) {
	var invoiceDate time.Time
	if req.InvoiceDate != "" {
		parsed, err := time.Parse("2006-01-02", req.InvoiceDate)
		if err != nil {
			return BillInput{}, err
		}
		invoiceDate = parsed
	}
	lines := make([]BillLine, 0, len(req.Lines))
	for i, l := range req.Lines {
		slNo := l.SlNo
		if slNo == 0 {
			slNo = i + 1
		}
		lines = append(lines, BillLine{
			SlNo:         slNo,
			Particular:   l.Particular,
			Amount:       l.Amount,
			Quantity:     l.Quantity,
			DiscountPct:  l.DiscountPct,
			Total:        l.Total,
			QuantityType: l.QuantityType,
			Verified:     l.Verified,
		})
	}
	return BillInput{
		ClientID:       req.ClientID,
		InvoiceDate:    invoiceDate,
		Lines:          lines,
		SubTotal:       req.SubTotal,
		TaxPct:         req.TaxPct,
		TaxAmount:      req.TaxAmount,
		DiscountPct:    req.DiscountPct,
		DiscountAmount: req.DiscountAmount,
		GrandTotal:     req.GrandTotal,
		Remarks:        req.Remarks,
		Payment:        PaymentInput{Amount: req.PaymentAmount, Mode: req.PaymentMode},
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := h.toInput(r, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invoice_date must be YYYY-MM-DD")
		return
	}
	result, err := h.service.CreateBill(r.Context(), input)
	if err != nil {
		h.logger.Error("create bill", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var req billRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := h.toInput(r, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invoice_date must be YYYY-MM-DD")
		return
	}
	result, err := h.service.UpdateBill(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update bill", slog.Any("error", err), slog.Int64("invoice_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) listByClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid client id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	invoices, err := h.service.ListInvoicesByClient(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err), slog.Int64("client_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid client id")
		return
	}
	out, err := h.service.GetOutstanding(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
