package masterdata

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Vendor lifecycle statuses.
type VendorStatus string

const (
	VendorStatusActive   VendorStatus = "active"
	VendorStatusInactive VendorStatus = "inactive"
)

// Product stock statuses. Set at creation and by explicit status updates;
// stock movement does not recompute them inline (the worker scan does).
type ProductStatus string

const (
	ProductStatusInStock    ProductStatus = "in_stock"
	ProductStatusLowStock   ProductStatus = "low_stock"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

var productStatusAliases = map[string]ProductStatus{
	"instock":    ProductStatusInStock,
	"lowstock":   ProductStatusLowStock,
	"outofstock": ProductStatusOutOfStock,
}

// NormalizeProductStatus resolves the spellings the admin UI sends
// ("In Stock", "in-stock", "low_stock") to a canonical status.
func NormalizeProductStatus(raw string) (ProductStatus, bool) {
	key := strings.ToLower(raw)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	status, ok := productStatusAliases[key]
	return status, ok
}

// Display returns the human label used by the admin UI ("in_stock" -> "In Stock").
func (s ProductStatus) Display() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

// Vendor represents a supplier of goods.
type Vendor struct {
	ID            uuid.UUID    `json:"id"`
	VendorCode    string       `json:"vendorCode"`
	VendorName    string       `json:"vendorName"`
	ContactPerson string       `json:"contactPerson"`
	Phone         string       `json:"phone"`
	Email         string       `json:"email"`
	Address       string       `json:"address"`
	GST           string       `json:"gst"`
	Categories    []string     `json:"categories"`
	Status        VendorStatus `json:"status"`
	IsDeleted     bool         `json:"isDeleted"`
	DeletedAt     *time.Time   `json:"deletedAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Product represents an inventory item. CurrentStock is only ever
// incremented by goods-receipt confirmation.
type Product struct {
	ID           uuid.UUID     `json:"id"`
	ProductCode  string        `json:"productCode"`
	ProductName  string        `json:"productName"`
	Category     string        `json:"category"`
	Unit         string        `json:"unit"`
	Sport        string        `json:"sport"`
	Facility     string        `json:"facility"`
	CurrentStock int           `json:"currentStock"`
	MinStock     int           `json:"minStock"`
	Status       ProductStatus `json:"status"`
	Notes        string        `json:"notes"`
	IsDeleted    bool          `json:"isDeleted"`
	DeletedAt    *time.Time    `json:"deletedAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// MarshalJSON adds the admin UI display label alongside the canonical
// status value.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		StatusLabel string `json:"statusLabel"`
	}{alias(p), p.Status.Display()})
}

// VendorFilters represents vendor list page filters.
type VendorFilters struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// ProductFilters represents product list page filters.
type ProductFilters struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Sport    string
	Status   string
}
