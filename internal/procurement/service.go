package procurement

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procura-hq/procura/internal/shared"
)

// Service implements the purchase order and goods receipt flows.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewService constructs the procurement service.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo}
}

// POItemInput is one requested line on a new purchase order.
type POItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Rate      decimal.Decimal
}

// CreatePOInput describes a purchase order creation payload.
type CreatePOInput struct {
	VendorID         uuid.UUID
	ExpectedDelivery time.Time
	Notes            string
	Items            []POItemInput
}

// CreatePurchaseOrder validates the payload, computes line amounts and
// totals, and persists the order with its items in one transaction. The
// order starts in draft.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput) (PODetail, error) {
	if input.VendorID == uuid.Nil || input.ExpectedDelivery.IsZero() || len(input.Items) == 0 {
		return PODetail{}, shared.NewError(shared.ErrValidation, "Required fields missing")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 || item.Rate.IsNegative() {
			return PODetail{}, shared.NewError(shared.ErrValidation, "Required fields missing")
		}
	}

	poID := uuid.New()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.FindVendor(ctx, input.VendorID); err != nil {
			return err
		}

		totalItems := 0
		totalAmount := decimal.Zero
		items := make([]PurchaseOrderItem, 0, len(input.Items))
		for _, in := range input.Items {
			if _, err := tx.FindProduct(ctx, in.ProductID); err != nil {
				return err
			}
			amount := in.Rate.Mul(decimal.NewFromInt(int64(in.Quantity)))
			totalItems += in.Quantity
			totalAmount = totalAmount.Add(amount)
			items = append(items, PurchaseOrderItem{
				ID:        uuid.New(),
				POID:      poID,
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
				Rate:      in.Rate,
				Amount:    amount,
			})
		}

		code, err := tx.NextPOCode(ctx)
		if err != nil {
			return err
		}
		po := PurchaseOrder{
			ID:               poID,
			POCode:           code,
			VendorID:         input.VendorID,
			TotalItems:       totalItems,
			TotalAmount:      totalAmount,
			ExpectedDelivery: input.ExpectedDelivery,
			Notes:            input.Notes,
			Status:           POStatusDraft,
		}
		if err := tx.InsertPO(ctx, po); err != nil {
			return err
		}
		return tx.InsertPOItems(ctx, items)
	})
	if err != nil {
		return PODetail{}, err
	}
	return s.repo.GetPO(ctx, poID)
}

// GetPurchaseOrder returns the order with vendor and item joins.
func (s *Service) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (PODetail, error) {
	return s.repo.GetPO(ctx, id)
}

// ListPurchaseOrders returns a page of orders matching the filters.
func (s *Service) ListPurchaseOrders(ctx context.Context, filters POFilters) ([]POListItem, int, error) {
	return s.repo.ListPOs(ctx, filters)
}

// UpdatePurchaseOrderStatus moves the order to the given status. Membership
// in the known set is the only check.
func (s *Service) UpdatePurchaseOrderStatus(ctx context.Context, id uuid.UUID, status string) (PODetail, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidPOStatus(status) {
		return PODetail{}, shared.NewError(shared.ErrValidation, "Invalid status value")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, id, POStatus(status))
	})
	if err != nil {
		return PODetail{}, err
	}
	return s.repo.GetPO(ctx, id)
}

// GRNItemInput is one received line on a new goods receipt.
type GRNItemInput struct {
	ProductID   uuid.UUID
	OrderedQty  int
	ReceivedQty int
	DamagedQty  int
}

// CreateGRNInput describes a goods receipt creation payload.
type CreateGRNInput struct {
	POID         uuid.UUID
	VendorID     uuid.UUID
	ReceivedDate time.Time
	Items        []GRNItemInput
}

// CreateGoodsReceipt posts a receipt against a purchase order. In one
// transaction it writes the receipt as confirmed, increments each product's
// stock by the received quantity, derives per-line complete/partial status,
// and marks the purchase order received. Any failure rolls everything back;
// a partial stock mutation is never observable.
func (s *Service) CreateGoodsReceipt(ctx context.Context, input CreateGRNInput) (GRNDetail, error) {
	if input.POID == uuid.Nil || input.VendorID == uuid.Nil || len(input.Items) == 0 {
		return GRNDetail{}, shared.NewError(shared.ErrValidation, "Required fields missing")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.OrderedQty < 0 || item.ReceivedQty < 0 || item.DamagedQty < 0 {
			return GRNDetail{}, shared.NewError(shared.ErrValidation, "Required fields missing")
		}
	}
	receivedDate := input.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}

	grnID := uuid.New()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.FindVendor(ctx, input.VendorID); err != nil {
			return err
		}
		// Resolved up front so a bad poId surfaces as not-found instead of a
		// foreign key violation on the receipt insert.
		if _, err := tx.FindPO(ctx, input.POID); err != nil {
			return err
		}

		code, err := tx.NextGRNCode(ctx)
		if err != nil {
			return err
		}
		grn := GoodsReceipt{
			ID:           grnID,
			GRNCode:      code,
			POID:         input.POID,
			VendorID:     input.VendorID,
			ReceivedDate: receivedDate,
			Status:       GRNStatusConfirmed,
		}
		if err := tx.InsertGRN(ctx, grn); err != nil {
			return err
		}

		items := make([]GoodsReceiptItem, 0, len(input.Items))
		for _, in := range input.Items {
			if err := tx.AddProductStock(ctx, in.ProductID, in.ReceivedQty); err != nil {
				return err
			}
			items = append(items, GoodsReceiptItem{
				ID:             uuid.New(),
				GoodsReceiptID: grnID,
				ProductID:      in.ProductID,
				OrderedQty:     in.OrderedQty,
				ReceivedQty:    in.ReceivedQty,
				DamagedQty:     in.DamagedQty,
				Status:         GRNItemStatusFor(in.ReceivedQty, in.OrderedQty),
			})
		}
		if err := tx.InsertGRNItems(ctx, items); err != nil {
			return err
		}

		// Unconditional: a receipt against a cancelled or draft order still
		// marks it received. Transition guards live in the admin UI.
		return tx.UpdatePOStatus(ctx, input.POID, POStatusReceived)
	})
	if err != nil {
		return GRNDetail{}, err
	}

	s.logger.Info("goods receipt posted",
		slog.String("grn_id", grnID.String()),
		slog.String("po_id", input.POID.String()))
	return s.repo.GetGRN(ctx, grnID)
}

// GetGoodsReceipt returns the receipt with vendor/PO joins and items.
func (s *Service) GetGoodsReceipt(ctx context.Context, id uuid.UUID) (GRNDetail, error) {
	return s.repo.GetGRN(ctx, id)
}

// ListGoodsReceipts returns every receipt, newest first. The admin UI
// consumes the full list; there is no pagination on this endpoint.
func (s *Service) ListGoodsReceipts(ctx context.Context) ([]GRNListItem, error) {
	return s.repo.ListGRNs(ctx)
}
