package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase order statuses. Any status may move to any other; the admin UI
// restricts which transitions it offers, the API only checks membership.
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusSent      POStatus = "sent"
	POStatusReceived  POStatus = "received"
	POStatusCancelled POStatus = "cancelled"
)

// ValidPOStatus reports whether raw is a known purchase order status.
func ValidPOStatus(raw string) bool {
	switch POStatus(raw) {
	case POStatusDraft, POStatusSent, POStatusReceived, POStatusCancelled:
		return true
	}
	return false
}

// Goods receipt statuses. Receipts are written as confirmed; pending exists
// for imports of historical data.
type GRNStatus string

const (
	GRNStatusPending   GRNStatus = "pending"
	GRNStatusConfirmed GRNStatus = "confirmed"
)

// GRNItemStatus marks whether a line was received in full.
type GRNItemStatus string

const (
	GRNItemComplete GRNItemStatus = "complete"
	GRNItemPartial  GRNItemStatus = "partial"
)

// GRNItemStatusFor derives the line status from quantities.
func GRNItemStatusFor(receivedQty, orderedQty int) GRNItemStatus {
	if receivedQty >= orderedQty {
		return GRNItemComplete
	}
	return GRNItemPartial
}

// PurchaseOrder is a vendor-facing request to supply goods.
type PurchaseOrder struct {
	ID               uuid.UUID       `json:"id"`
	POCode           string          `json:"poCode"`
	VendorID         uuid.UUID       `json:"vendorId"`
	TotalItems       int             `json:"totalItems"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	ExpectedDelivery time.Time       `json:"expectedDelivery"`
	Notes            string          `json:"notes"`
	Status           POStatus        `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// PurchaseOrderItem is one product line on a purchase order. Amount is
// quantity x rate, fixed at creation and never recomputed.
type PurchaseOrderItem struct {
	ID        uuid.UUID       `json:"id"`
	POID      uuid.UUID       `json:"poId"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
}

// POItemView is a purchase order item joined with product display fields.
type POItemView struct {
	PurchaseOrderItem
	ProductName string `json:"productName"`
	ProductCode string `json:"productCode"`
}

// PODetail is a purchase order with vendor name and eager-loaded items.
type PODetail struct {
	PurchaseOrder
	VendorName string       `json:"vendorName"`
	Items      []POItemView `json:"items"`
}

// POListItem is the listing row for purchase orders.
type POListItem struct {
	PurchaseOrder
	VendorName string `json:"vendorName"`
}

// GoodsReceipt records goods physically received against a purchase order.
// VendorID is a denormalized copy taken at creation, not re-derived from
// the purchase order.
type GoodsReceipt struct {
	ID           uuid.UUID `json:"id"`
	GRNCode      string    `json:"grnCode"`
	POID         uuid.UUID `json:"poId"`
	VendorID     uuid.UUID `json:"vendorId"`
	ReceivedDate time.Time `json:"receivedDate"`
	Status       GRNStatus `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GoodsReceiptItem is one product line on a goods receipt.
type GoodsReceiptItem struct {
	ID             uuid.UUID     `json:"id"`
	GoodsReceiptID uuid.UUID     `json:"goodsReceiptId"`
	ProductID      uuid.UUID     `json:"productId"`
	OrderedQty     int           `json:"orderedQty"`
	ReceivedQty    int           `json:"receivedQty"`
	DamagedQty     int           `json:"damagedQty"`
	Status         GRNItemStatus `json:"status"`
}

// GRNItemView is a goods receipt item joined with product display fields.
type GRNItemView struct {
	GoodsReceiptItem
	ProductName string `json:"productName"`
	ProductCode string `json:"productCode"`
}

// GRNDetail is a goods receipt with vendor/PO display fields and items.
type GRNDetail struct {
	GoodsReceipt
	VendorName string        `json:"vendorName"`
	POCode     string        `json:"poCode"`
	Items      []GRNItemView `json:"items"`
}

// GRNListItem is the listing row for goods receipts.
type GRNListItem struct {
	GoodsReceipt
	VendorName string `json:"vendorName"`
	POCode     string `json:"poCode"`
}

// VendorRef is the vendor projection procurement needs for validation and
// display joins.
type VendorRef struct {
	ID         uuid.UUID
	VendorName string
}

// ProductRef is the product projection procurement needs.
type ProductRef struct {
	ID           uuid.UUID
	ProductName  string
	ProductCode  string
	CurrentStock int
}

// PORef is the purchase order projection receipt posting needs.
type PORef struct {
	ID     uuid.UUID
	POCode string
	Status POStatus
}

// POFilters represents purchase order list filters.
type POFilters struct {
	Page   int
	Limit  int
	Search string
}
