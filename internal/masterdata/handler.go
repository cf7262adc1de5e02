package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/procura-hq/procura/internal/platform/httpx"
	"github.com/procura-hq/procura/internal/shared"
)

// Handler wires HTTP endpoints for vendors and products.
type Handler struct {
	logger    *slog.Logger
	service   Service
	audit     *shared.AuditLogger
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service Service, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		audit:     audit,
		validator: validator.New(),
	}
}

// MountRoutes registers vendor and product routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", h.listVendors)
		r.Post("/", h.createVendor)
		r.Get("/{id}", h.getVendor)
		r.Put("/{id}", h.updateVendor)
		r.Delete("/{id}", h.deleteVendor)
		r.Patch("/{id}/status", h.updateVendorStatus)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
		r.Patch("/{id}/status", h.updateProductStatus)
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

type vendorRequest struct {
	VendorName    string   `json:"vendorName" validate:"omitempty,max=255"`
	ContactPerson string   `json:"contactPerson" validate:"omitempty,max=255"`
	Phone         string   `json:"phone" validate:"omitempty,max=32"`
	Email         string   `json:"email"`
	Address       string   `json:"address"`
	GST           string   `json:"gst" validate:"omitempty,max=32"`
	Categories    []string `json:"categories"`
	Status        string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	filters := VendorFilters{
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
	vendors, total, err := h.service.ListVendors(r.Context(), filters)
	if err != nil {
		h.logger.Error("list vendors", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	if vendors == nil {
		vendors = []Vendor{}
	}
	httpx.List(w, vendors, shared.NewPagination(filters.Page, filters.Limit, total))
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	vendor, err := h.service.CreateVendor(r.Context(), CreateVendorInput{
		VendorName:    req.VendorName,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		GST:           req.GST,
		Categories:    req.Categories,
		Status:        req.Status,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "vendor.created", "vendor", vendor.ID, map[string]any{"vendorCode": vendor.VendorCode})
	httpx.OK(w, http.StatusCreated, vendor, "Vendor created successfully")
}

func (h *Handler) getVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	vendor, err := h.service.GetVendor(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, vendor, "")
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req vendorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	vendor, err := h.service.UpdateVendor(r.Context(), id, UpdateVendorInput{
		VendorName:    req.VendorName,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		GST:           req.GST,
		Categories:    req.Categories,
		Status:        req.Status,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "vendor.updated", "vendor", vendor.ID, nil)
	httpx.OK(w, http.StatusOK, vendor, "Vendor updated successfully")
}

func (h *Handler) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	deleted, err := h.service.DeleteVendor(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "vendor.deleted", "vendor", id, map[string]any{"vendorCode": deleted.VendorCode})
	httpx.OK(w, http.StatusOK, nil, "Vendor deleted successfully")
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateVendorStatus(w http.ResponseWriter, r *http.Request) {
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
	vendor, err := h.service.UpdateVendorStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "vendor.status_changed", "vendor", id, map[string]any{"status": req.Status})
	httpx.OK(w, http.StatusOK, vendor, "Vendor status updated successfully")
}

type productRequest struct {
	ProductName string `json:"productName" validate:"omitempty,max=255"`
	Category    string `json:"category" validate:"omitempty,max=128"`
	Unit        string `json:"unit" validate:"omitempty,max=32"`
	Sport       string `json:"sport" validate:"omitempty,max=128"`
	Facility    string `json:"facility" validate:"omitempty,max=128"`
	MinStock    int    `json:"minStock" validate:"omitempty,min=0"`
	Notes       string `json:"notes"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filters := ProductFilters{
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Sport:    r.URL.Query().Get("sport"),
		Status:   r.URL.Query().Get("status"),
	}
	products, total, err := h.service.ListProducts(r.Context(), filters)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.List(w, products, shared.NewPagination(filters.Page, filters.Limit, total))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	product, err := h.service.CreateProduct(r.Context(), CreateProductInput{
		ProductName: req.ProductName,
		Category:    req.Category,
		Unit:        req.Unit,
		Sport:       req.Sport,
		Facility:    req.Facility,
		MinStock:    req.MinStock,
		Notes:       req.Notes,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "product.created", "product", product.ID, map[string]any{"productCode": product.ProductCode})
	httpx.OK(w, http.StatusCreated, product, "Product created successfully")
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, product, "")
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, shared.NewError(shared.ErrValidation, "Invalid request body"))
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, UpdateProductInput{
		ProductName: req.ProductName,
		Category:    req.Category,
		Unit:        req.Unit,
		Sport:       req.Sport,
		Facility:    req.Facility,
		MinStock:    req.MinStock,
		Notes:       req.Notes,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "product.updated", "product", product.ID, nil)
	httpx.OK(w, http.StatusOK, product, "Product updated successfully")
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "product.deleted", "product", id, nil)
	httpx.OK(w, http.StatusOK, nil, "Product deleted successfully")
}

func (h *Handler) updateProductStatus(w http.ResponseWriter, r *http.Request) {
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
	product, err := h.service.UpdateProductStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.recordAudit(r, "product.status_changed", "product", id, map[string]any{"status": req.Status})
	httpx.OK(w, http.StatusOK, product, "Product status updated successfully")
}
