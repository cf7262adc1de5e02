package invoicing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procura-hq/procura/internal/shared"
)

// Service implements the invoice flows.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewService constructs the invoicing service.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo}
}

// CreateInvoiceInput describes an invoice creation payload.
type CreateInvoiceInput struct {
	VendorID        uuid.UUID
	InvoiceDate     time.Time
	Amount          decimal.Decimal
	POID            *uuid.UUID
	POReference     string
	InvoiceDocument string
}

// CreateInvoice persists a new invoice. When a purchase order id is
// supplied, its line items are copied into invoice items at this instant;
// the copy never tracks later order edits. Everything happens in one
// transaction.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (InvoiceDetail, error) {
	if input.VendorID == uuid.Nil || input.InvoiceDate.IsZero() || input.Amount.LessThanOrEqual(decimal.Zero) {
		return InvoiceDetail{}, shared.NewError(shared.ErrValidation, "Required fields missing")
	}

	invoiceID := uuid.New()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.FindVendor(ctx, input.VendorID); err != nil {
			return err
		}

		number, err := tx.NextInvoiceCode(ctx)
		if err != nil {
			return err
		}

		poReference := input.POReference
		var items []InvoiceItem
		if input.POID != nil {
			poCode, snapshot, err := tx.GetPOSnapshot(ctx, *input.POID)
			if err != nil {
				return err
			}
			if poReference == "" {
				poReference = poCode
			}
			for _, line := range snapshot {
				items = append(items, InvoiceItem{
					ID:          uuid.New(),
					InvoiceID:   invoiceID,
					ProductID:   line.ProductID,
					ProductName: line.ProductName,
					Quantity:    line.Quantity,
					UnitPrice:   line.Rate,
					Tax:         decimal.Zero,
					Discount:    decimal.Zero,
					Total:       line.Amount,
				})
			}
		}

		inv := Invoice{
			ID:              invoiceID,
			InvoiceNumber:   number,
			VendorID:        input.VendorID,
			POID:            input.POID,
			POReference:     poReference,
			InvoiceDate:     input.InvoiceDate,
			Amount:          input.Amount,
			PaymentStatus:   PaymentPending,
			InvoiceDocument: input.InvoiceDocument,
			Status:          InvoiceActive,
		}
		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.InsertInvoiceItems(ctx, items)
	})
	if err != nil {
		return InvoiceDetail{}, err
	}

	s.logger.Info("invoice created", slog.String("invoice_id", invoiceID.String()))
	return s.repo.GetInvoice(ctx, invoiceID)
}

// GetInvoice returns the invoice with vendor/PO joins and items.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (InvoiceDetail, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns a page of invoices matching the filters.
func (s *Service) ListInvoices(ctx context.Context, filters InvoiceFilters) ([]InvoiceListItem, int, error) {
	if filters.PaymentStatus != "" && !ValidPaymentStatus(filters.PaymentStatus) {
		return nil, 0, shared.NewError(shared.ErrValidation, "Invalid payment status")
	}
	return s.repo.ListInvoices(ctx, filters)
}

// UpdatePaymentStatus moves the invoice to the given payment status and
// returns the fully reloaded detail so callers never see a stale partial
// view after the mutation.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) (InvoiceDetail, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidPaymentStatus(status) {
		return InvoiceDetail{}, shared.NewError(shared.ErrValidation, "Invalid payment status")
	}
	if err := s.repo.UpdatePaymentStatus(ctx, id, PaymentStatus(status)); err != nil {
		return InvoiceDetail{}, err
	}
	return s.repo.GetInvoice(ctx, id)
}
