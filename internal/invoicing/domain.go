package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment lifecycle of an invoice. Membership is the only check; the admin
// UI decides which moves to offer.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

// ValidPaymentStatus reports whether raw is a known payment status.
func ValidPaymentStatus(raw string) bool {
	switch PaymentStatus(raw) {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// InvoiceStatus is a second lifecycle flag independent of payment status.
type InvoiceStatus string

const (
	InvoiceActive   InvoiceStatus = "active"
	InvoiceInactive InvoiceStatus = "inactive"
)

// Invoice is a vendor bill, optionally linked to a purchase order.
type Invoice struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	VendorID        uuid.UUID       `json:"vendorId"`
	POID            *uuid.UUID      `json:"poId,omitempty"`
	POReference     string          `json:"poReference"`
	InvoiceDate     time.Time       `json:"invoiceDate"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	InvoiceDocument string          `json:"invoiceDocument"`
	Status          InvoiceStatus   `json:"status"`
	IsDeleted       bool            `json:"isDeleted"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// InvoiceItem is a line copied from a purchase order item at creation time.
// It is a point-in-time snapshot: later edits to the order never propagate
// here. Tax and discount are stored but not folded into totals.
type InvoiceItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoiceId"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceDetail is an invoice with vendor/PO display fields and items.
type InvoiceDetail struct {
	Invoice
	VendorName    string           `json:"vendorName"`
	VendorEmail   string           `json:"vendorEmail"`
	VendorPhone   string           `json:"vendorPhone"`
	VendorAddress string           `json:"vendorAddress"`
	VendorGST     string           `json:"vendorGst"`
	POCode        string           `json:"poCode,omitempty"`
	POTotalAmount *decimal.Decimal `json:"poTotalAmount,omitempty"`
	Items         []InvoiceItem    `json:"items"`
}

// InvoiceListItem is the listing row for invoices.
type InvoiceListItem struct {
	Invoice
	VendorName string `json:"vendorName"`
}

// POItemSnapshot is the purchase order line projection copied into invoice
// items when an invoice is created against an order.
type POItemSnapshot struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// VendorRef is the vendor projection invoicing needs.
type VendorRef struct {
	ID         uuid.UUID
	VendorName string
}

// InvoiceFilters represents invoice list filters.
type InvoiceFilters struct {
	Page          int
	Limit         int
	Search        string
	PaymentStatus string
}
