package invoicing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procura-hq/procura/internal/platform/httpx"
	"github.com/procura-hq/procura/internal/shared"
)

// SummaryInvalidator drops cached dashboard aggregates after writes that
// change the numbers they report.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context) error
}

// Handler wires HTTP endpoints for invoices.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     *shared.AuditLogger
	summaries SummaryInvalidator
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. summaries may be nil when no
// report cache is configured.
func NewHandler(logger *slog.Logger, service *Service, audit *shared.AuditLogger, summaries SummaryInvalidator) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		audit:     audit,
		summaries: summaries,
		validator: validator.New(),
	}
}

// MountRoutes registers invoice routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Post("/", h.createInvoice)
		r.Get("/{id}", h.getInvoice)
		r.Patch("/{id}/payment-status", h.updatePaymentStatus)
	})
}

func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, shared.NewError(shared.ErrValidation, "Invalid id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID uuid.UUID, meta map[string]any) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		Action:   action,
		Entity:   "invoice",
		EntityID: entityID.String(),
		Meta:     meta,
	}); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) invalidateSummary(ctx context.Context) {
	if h.summaries == nil {
		return
	}
	if err := h.summaries.InvalidateSummary(ctx); err != nil {
		h.logger.Warn("invalidate report summary", slog.Any("error", err))
	}
}

type createInvoiceRequest struct {
	VendorID        uuid.UUID       `json:"vendorId" validate:"required"`
	InvoiceDate     time.Time       `json:"invoiceDate" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	POID            *uuid.UUID      `json:"poId"`
	POReference     string          `json:"poReference"`
	InvoiceDocument string          `json:"invoiceDocument"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Required fields missing"))
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), CreateInvoiceInput{
		VendorID:        req.VendorID,
		InvoiceDate:     req.InvoiceDate,
		Amount:          req.Amount,
		POID:            req.POID,
		POReference:     req.POReference,
		InvoiceDocument: req.InvoiceDocument,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "invoice.created", inv.ID, map[string]any{"invoiceNumber": inv.InvoiceNumber})
	h.invalidateSummary(r.Context())
	httpx.OK(w, http.StatusCreated, inv, "Invoice created successfully")
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, "")
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	filters := InvoiceFilters{
		Page:          queryInt(r, "page"),
		Limit:         queryInt(r, "limit"),
		Search:        r.URL.Query().Get("search"),
		PaymentStatus: r.URL.Query().Get("paymentStatus"),
	}
	invoices, total, err := h.service.ListInvoices(r.Context(), filters)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	if invoices == nil {
		invoices = []InvoiceListItem{}
	}
	httpx.List(w, invoices, shared.NewPagination(filters.Page, filters.Limit, total))
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

func (h *Handler) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req paymentStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	inv, err := h.service.UpdatePaymentStatus(r.Context(), id, req.PaymentStatus)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "invoice.payment_status_changed", id, map[string]any{"paymentStatus": req.PaymentStatus})
	h.invalidateSummary(r.Context())
	httpx.OK(w, http.StatusOK, inv, "Payment status updated successfully")
}
