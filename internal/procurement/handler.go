package procurement

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

// Handler wires HTTP endpoints for purchase orders and goods receipts.
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

// MountRoutes registers procurement routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.listPurchaseOrders)
		r.Post("/", h.createPurchaseOrder)
		r.Get("/{id}", h.getPurchaseOrder)
		r.Patch("/{id}/status", h.updatePurchaseOrderStatus)
	})
	r.Route("/goods-receipts", func(r chi.Router) {
		r.Get("/", h.listGoodsReceipts)
		r.Post("/", h.createGoodsReceipt)
		r.Get("/{id}", h.getGoodsReceipt)
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

func (h *Handler) recordAudit(r *http.Request, action, entity string, entityID uuid.UUID, meta map[string]any) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		Action:   action,
		Entity:   entity,
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

type poItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Rate      decimal.Decimal `json:"rate"`
}

type createPORequest struct {
	VendorID         uuid.UUID       `json:"vendorId" validate:"required"`
	ExpectedDelivery time.Time       `json:"expectedDelivery" validate:"required"`
	Notes            string          `json:"notes"`
	Items            []poItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Required fields missing"))
		return
	}
	items := make([]POItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, POItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Rate: it.Rate})
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), CreatePOInput{
		VendorID:         req.VendorID,
		ExpectedDelivery: req.ExpectedDelivery,
		Notes:            req.Notes,
		Items:            items,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "po.created", "purchase_order", po.ID, map[string]any{"poCode": po.POCode})
	h.invalidateSummary(r.Context())
	httpx.OK(w, http.StatusCreated, po, "Purchase order created successfully")
}

func (h *Handler) getPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	po, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, po, "")
}

func (h *Handler) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	filters := POFilters{
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
		Search: r.URL.Query().Get("search"),
	}
	orders, total, err := h.service.ListPurchaseOrders(r.Context(), filters)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	if orders == nil {
		orders = []POListItem{}
	}
	httpx.List(w, orders, shared.NewPagination(filters.Page, filters.Limit, total))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updatePurchaseOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	po, err := h.service.UpdatePurchaseOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "po.status_changed", "purchase_order", id, map[string]any{"status": req.Status})
	h.invalidateSummary(r.Context())
	httpx.OK(w, http.StatusOK, po, "Purchase order status updated successfully")
}

type grnItemRequest struct {
	ProductID   uuid.UUID `json:"productId" validate:"required"`
	OrderedQty  int       `json:"orderedQty" validate:"min=0"`
	ReceivedQty int       `json:"receivedQty" validate:"min=0"`
	DamagedQty  int       `json:"damagedQty" validate:"min=0"`
}

type createGRNRequest struct {
	POID         uuid.UUID        `json:"poId" validate:"required"`
	VendorID     uuid.UUID        `json:"vendorId" validate:"required"`
	ReceivedDate time.Time        `json:"receivedDate"`
	Items        []grnItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) createGoodsReceipt(w http.ResponseWriter, r *http.Request) {
	var req createGRNRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Required fields missing"))
		return
	}
	items := make([]GRNItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, GRNItemInput{
			ProductID:   it.ProductID,
			OrderedQty:  it.OrderedQty,
			ReceivedQty: it.ReceivedQty,
			DamagedQty:  it.DamagedQty,
		})
	}
	grn, err := h.service.CreateGoodsReceipt(r.Context(), CreateGRNInput{
		POID:         req.POID,
		VendorID:     req.VendorID,
		ReceivedDate: req.ReceivedDate,
		Items:        items,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "grn.created", "goods_receipt", grn.ID, map[string]any{"grnCode": grn.GRNCode, "poId": req.POID.String()})
	h.invalidateSummary(r.Context())
	httpx.OK(w, http.StatusCreated, grn, "Goods receipt created successfully")
}

func (h *Handler) getGoodsReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	grn, err := h.service.GetGoodsReceipt(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, grn, "")
}

func (h *Handler) listGoodsReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.service.ListGoodsReceipts(r.Context())
	if err != nil {
		h.logger.Error("list goods receipts", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	if receipts == nil {
		receipts = []GRNListItem{}
	}
	httpx.OK(w, http.StatusOK, receipts, "")
}
