package masterdata

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/procura-hq/procura/internal/shared"
)

// Repository interface for vendor and product persistence.
type Repository interface {
	CreateVendor(ctx context.Context, vendor Vendor) (Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error)
	GetVendorAny(ctx context.Context, id uuid.UUID) (Vendor, error)
	FindVendorByEmail(ctx context.Context, email string) (Vendor, error)
	ListVendors(ctx context.Context, filters VendorFilters) ([]Vendor, int, error)
	UpdateVendor(ctx context.Context, id uuid.UUID, vendor Vendor) error
	SoftDeleteVendor(ctx context.Context, id uuid.UUID) error
	SetVendorStatus(ctx context.Context, id uuid.UUID, status VendorStatus) error

	CreateProduct(ctx context.Context, product Product) (Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, filters ProductFilters) ([]Product, int, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, product Product) error
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) error
	SetProductStatus(ctx context.Context, id uuid.UUID, status ProductStatus) error
}

// Service exposes vendor and product operations.
type Service interface {
	CreateVendor(ctx context.Context, input CreateVendorInput) (Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error)
	ListVendors(ctx context.Context, filters VendorFilters) ([]Vendor, int, error)
	UpdateVendor(ctx context.Context, id uuid.UUID, input UpdateVendorInput) (Vendor, error)
	DeleteVendor(ctx context.Context, id uuid.UUID) (Vendor, error)
	UpdateVendorStatus(ctx context.Context, id uuid.UUID, status string) (Vendor, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, filters ProductFilters) ([]Product, int, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	UpdateProductStatus(ctx context.Context, id uuid.UUID, status string) (Product, error)
}

// service implements Service.
type service struct {
	repo Repository
}

// NewService creates a new master data service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateVendorInput describes a vendor creation payload.
type CreateVendorInput struct {
	VendorName    string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	GST           string
	Categories    []string
	Status        string
}

// UpdateVendorInput carries updatable vendor fields; zero values leave the
// stored field unchanged.
type UpdateVendorInput struct {
	VendorName    string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	GST           string
	Categories    []string
	Status        string
}

// CreateProductInput describes a product creation payload.
type CreateProductInput struct {
	ProductName string
	Category    string
	Unit        string
	Sport       string
	Facility    string
	MinStock    int
	Notes       string
}

// UpdateProductInput carries updatable product fields. Stock fields are
// deliberately absent: currentStock moves only through goods receipts.
type UpdateProductInput struct {
	ProductName string
	Category    string
	Unit        string
	Sport       string
	Facility    string
	MinStock    int
	Notes       string
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (s *service) CreateVendor(ctx context.Context, input CreateVendorInput) (Vendor, error) {
	if strings.TrimSpace(input.VendorName) == "" || strings.TrimSpace(input.Phone) == "" || strings.TrimSpace(input.Email) == "" {
		return Vendor{}, shared.NewError(shared.ErrValidation, "Required fields missing")
	}
	if !emailPattern.MatchString(input.Email) {
		return Vendor{}, shared.NewError(shared.ErrValidation, "Invalid email format")
	}
	if _, err := s.repo.FindVendorByEmail(ctx, input.Email); err == nil {
		return Vendor{}, shared.NewError(shared.ErrConflict, "Vendor already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Vendor{}, err
	}

	status := VendorStatusActive
	if input.Status != "" {
		if input.Status != string(VendorStatusActive) && input.Status != string(VendorStatusInactive) {
			return Vendor{}, shared.NewError(shared.ErrValidation, "Invalid status value")
		}
		status = VendorStatus(input.Status)
	}

	vendor := Vendor{
		ID:            uuid.New(),
		VendorName:    input.VendorName,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		Address:       input.Address,
		GST:           input.GST,
		Categories:    input.Categories,
		Status:        status,
	}
	return s.repo.CreateVendor(ctx, vendor)
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

func (s *service) ListVendors(ctx context.Context, filters VendorFilters) ([]Vendor, int, error) {
	return s.repo.ListVendors(ctx, filters)
}

func (s *service) UpdateVendor(ctx context.Context, id uuid.UUID, input UpdateVendorInput) (Vendor, error) {
	vendor, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return Vendor{}, err
	}

	if input.Email != "" && input.Email != vendor.Email {
		if !emailPattern.MatchString(input.Email) {
			return Vendor{}, shared.NewError(shared.ErrValidation, "Invalid email format")
		}
		existing, err := s.repo.FindVendorByEmail(ctx, input.Email)
		if err == nil && existing.ID != id {
			return Vendor{}, shared.NewError(shared.ErrConflict, "Email already in use")
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Vendor{}, err
		}
		vendor.Email = input.Email
	}
	if input.VendorName != "" {
		vendor.VendorName = input.VendorName
	}
	if input.ContactPerson != "" {
		vendor.ContactPerson = input.ContactPerson
	}
	if input.Phone != "" {
		vendor.Phone = input.Phone
	}
	if input.Address != "" {
		vendor.Address = input.Address
	}
	if input.GST != "" {
		vendor.GST = input.GST
	}
	if input.Categories != nil {
		vendor.Categories = input.Categories
	}
	if input.Status != "" {
		if input.Status != string(VendorStatusActive) && input.Status != string(VendorStatusInactive) {
			return Vendor{}, shared.NewError(shared.ErrValidation, "Invalid status value")
		}
		vendor.Status = VendorStatus(input.Status)
	}

	if err := s.repo.UpdateVendor(ctx, id, vendor); err != nil {
		return Vendor{}, err
	}
	return s.repo.GetVendor(ctx, id)
}

// DeleteVendor soft-deletes the vendor and returns its final state for the
// caller's audit trail. The read after the delete goes through the
// scope-bypassing lookup, since the default scope no longer sees the row.
func (s *service) DeleteVendor(ctx context.Context, id uuid.UUID) (Vendor, error) {
	if _, err := s.repo.GetVendor(ctx, id); err != nil {
		return Vendor{}, err
	}
	if err := s.repo.SoftDeleteVendor(ctx, id); err != nil {
		return Vendor{}, err
	}
	return s.repo.GetVendorAny(ctx, id)
}

func (s *service) UpdateVendorStatus(ctx context.Context, id uuid.UUID, status string) (Vendor, error) {
	if status != string(VendorStatusActive) && status != string(VendorStatusInactive) {
		return Vendor{}, shared.NewError(shared.ErrValidation, "Invalid status value")
	}
	if _, err := s.repo.GetVendor(ctx, id); err != nil {
		return Vendor{}, err
	}
	if err := s.repo.SetVendorStatus(ctx, id, VendorStatus(status)); err != nil {
		return Vendor{}, err
	}
	return s.repo.GetVendor(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	if strings.TrimSpace(input.ProductName) == "" || strings.TrimSpace(input.Category) == "" ||
		strings.TrimSpace(input.Unit) == "" || input.MinStock <= 0 {
		return Product{}, shared.NewError(shared.ErrValidation, "Required fields missing")
	}

	product := Product{
		ID:           uuid.New(),
		ProductName:  input.ProductName,
		Category:     input.Category,
		Unit:         input.Unit,
		Sport:        input.Sport,
		Facility:     input.Facility,
		CurrentStock: 0,
		MinStock:     input.MinStock,
		Status:       ProductStatusInStock,
		Notes:        input.Notes,
	}
	return s.repo.CreateProduct(ctx, product)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, filters ProductFilters) ([]Product, int, error) {
	if filters.Status != "" {
		status, ok := NormalizeProductStatus(filters.Status)
		if !ok {
			return nil, 0, shared.NewError(shared.ErrValidation, "Invalid status value")
		}
		filters.Status = string(status)
	}
	return s.repo.ListProducts(ctx, filters)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if input.ProductName != "" {
		product.ProductName = input.ProductName
	}
	if input.Category != "" {
		product.Category = input.Category
	}
	if input.Unit != "" {
		product.Unit = input.Unit
	}
	if input.Sport != "" {
		product.Sport = input.Sport
	}
	if input.Facility != "" {
		product.Facility = input.Facility
	}
	if input.MinStock > 0 {
		product.MinStock = input.MinStock
	}
	if input.Notes != "" {
		product.Notes = input.Notes
	}

	if err := s.repo.UpdateProduct(ctx, id, product); err != nil {
		return Product{}, err
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDeleteProduct(ctx, id)
}

func (s *service) UpdateProductStatus(ctx context.Context, id uuid.UUID, status string) (Product, error) {
	normalized, ok := NormalizeProductStatus(status)
	if !ok {
		return Product{}, shared.NewError(shared.ErrValidation, "Invalid status value")
	}
	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return Product{}, err
	}
	if err := s.repo.SetProductStatus(ctx, id, normalized); err != nil {
		return Product{}, err
	}
	return s.repo.GetProduct(ctx, id)
}
