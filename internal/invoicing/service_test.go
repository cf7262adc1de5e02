package invoicing

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procura-hq/procura/internal/shared"
)

type memoryInvoiceRepo struct {
	vendors    map[uuid.UUID]VendorRef
	poCodes    map[uuid.UUID]string
	poItems    map[uuid.UUID][]POItemSnapshot
	invoices   map[uuid.UUID]Invoice
	items      map[uuid.UUID][]InvoiceItem
	invoiceSeq int64
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{
		vendors:  make(map[uuid.UUID]VendorRef),
		poCodes:  make(map[uuid.UUID]string),
		poItems:  make(map[uuid.UUID][]POItemSnapshot),
		invoices: make(map[uuid.UUID]Invoice),
		items:    make(map[uuid.UUID][]InvoiceItem),
	}
}

type memoryInvoiceTx struct {
	repo *memoryInvoiceRepo
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	beforeInvoices := make(map[uuid.UUID]Invoice, len(r.invoices))
	for k, v := range r.invoices {
		beforeInvoices[k] = v
	}
	beforeItems := make(map[uuid.UUID][]InvoiceItem, len(r.items))
	for k, v := range r.items {
		beforeItems[k] = append([]InvoiceItem(nil), v...)
	}
	beforeSeq := r.invoiceSeq
	if err := fn(ctx, &memoryInvoiceTx{repo: r}); err != nil {
		r.invoices = beforeInvoices
		r.items = beforeItems
		r.invoiceSeq = beforeSeq
		return err
	}
	return nil
}

func (r *memoryInvoiceRepo) GetInvoice(ctx context.Context, id uuid.UUID) (InvoiceDetail, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.IsDeleted {
		return InvoiceDetail{}, shared.NewError(shared.ErrNotFound, "Invoice not found")
	}
	d := InvoiceDetail{Invoice: inv, VendorName: r.vendors[inv.VendorID].VendorName}
	if inv.POID != nil {
		d.POCode = r.poCodes[*inv.POID]
	}
	d.Items = append(d.Items, r.items[id]...)
	return d, nil
}

func (r *memoryInvoiceRepo) ListInvoices(ctx context.Context, filters InvoiceFilters) ([]InvoiceListItem, int, error) {
	var out []InvoiceListItem
	for _, inv := range r.invoices {
		if inv.IsDeleted {
			continue
		}
		if filters.PaymentStatus != "" && string(inv.PaymentStatus) != filters.PaymentStatus {
			continue
		}
		out = append(out, InvoiceListItem{Invoice: inv, VendorName: r.vendors[inv.VendorID].VendorName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, len(out), nil
}

func (r *memoryInvoiceRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	inv, ok := r.invoices[id]
	if !ok || inv.IsDeleted {
		return shared.NewError(shared.ErrNotFound, "Invoice not found")
	}
	inv.PaymentStatus = status
	inv.UpdatedAt = time.Now()
	r.invoices[id] = inv
	return nil
}

func (t *memoryInvoiceTx) NextInvoiceCode(ctx context.Context) (string, error) {
	t.repo.invoiceSeq++
	return shared.FormatCode(shared.CodePrefixInvoice, t.repo.invoiceSeq), nil
}

func (t *memoryInvoiceTx) FindVendor(ctx context.Context, id uuid.UUID) (VendorRef, error) {
	v, ok := t.repo.vendors[id]
	if !ok {
		return VendorRef{}, shared.NewError(shared.ErrNotFound, "Vendor not found")
	}
	return v, nil
}

func (t *memoryInvoiceTx) GetPOSnapshot(ctx context.Context, poID uuid.UUID) (string, []POItemSnapshot, error) {
	code, ok := t.repo.poCodes[poID]
	if !ok {
		return "", nil, shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	return code, append([]POItemSnapshot(nil), t.repo.poItems[poID]...), nil
}

func (t *memoryInvoiceTx) InsertInvoice(ctx context.Context, inv Invoice) error {
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	t.repo.invoices[inv.ID] = inv
	return nil
}

func (t *memoryInvoiceTx) InsertInvoiceItems(ctx context.Context, items []InvoiceItem) error {
	for _, item := range items {
		t.repo.items[item.InvoiceID] = append(t.repo.items[item.InvoiceID], item)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedVendor(r *memoryInvoiceRepo) uuid.UUID {
	id := uuid.New()
	r.vendors[id] = VendorRef{ID: id, VendorName: "Acme Sports Supplies"}
	return id
}

func seedPO(r *memoryInvoiceRepo, code string, items ...POItemSnapshot) uuid.UUID {
	id := uuid.New()
	r.poCodes[id] = code
	r.poItems[id] = items
	return id
}

func TestCreateInvoiceWithoutPO(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		VendorID:    vendorID,
		InvoiceDate: time.Now(),
		Amount:      decimal.RequireFromString("1500.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "INV001", inv.InvoiceNumber)
	require.Equal(t, PaymentPending, inv.PaymentStatus)
	require.Equal(t, InvoiceActive, inv.Status)
	require.Empty(t, inv.Items)
}

func TestCreateInvoiceValidation(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		VendorID: vendorID,
		Amount:   decimal.NewFromInt(100),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		VendorID:    vendorID,
		InvoiceDate: time.Now(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateInvoiceCopiesPOItems(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	productID := uuid.New()
	poID := seedPO(repo, "PO007",
		POItemSnapshot{ProductID: productID, ProductName: "Tennis Ball", Quantity: 10, Rate: decimal.NewFromInt(100), Amount: decimal.NewFromInt(1000)},
		POItemSnapshot{ProductID: uuid.New(), ProductName: "Racket Grip", Quantity: 4, Rate: decimal.RequireFromString("12.50"), Amount: decimal.NewFromInt(50)},
	)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		VendorID:    vendorID,
		InvoiceDate: time.Now(),
		Amount:      decimal.NewFromInt(1050),
		POID:        &poID,
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	require.Equal(t, "PO007", inv.POReference)
	require.Equal(t, "PO007", inv.POCode)

	byName := map[string]InvoiceItem{}
	for _, item := range inv.Items {
		byName[item.ProductName] = item
	}
	ball := byName["Tennis Ball"]
	require.Equal(t, productID, ball.ProductID)
	require.Equal(t, 10, ball.Quantity)
	require.True(t, ball.UnitPrice.Equal(decimal.NewFromInt(100)))
	require.True(t, ball.Total.Equal(decimal.NewFromInt(1000)))
	require.True(t, ball.Tax.IsZero())
	require.True(t, ball.Discount.IsZero())

	// Snapshot: mutating the order afterwards changes nothing here.
	repo.poItems[poID][0].Quantity = 99
	reloaded, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, 10, reloaded.Items[0].Quantity)
}

func TestCreateInvoiceUnknownPORollsBack(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	missing := uuid.New()

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		VendorID:    vendorID,
		InvoiceDate: time.Now(),
		Amount:      decimal.NewFromInt(100),
		POID:        &missing,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.invoices)
	require.Empty(t, repo.items)
}

func TestUpdatePaymentStatus(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)

	inv, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		VendorID:    vendorID,
		InvoiceDate: time.Now(),
		Amount:      decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePaymentStatus(context.Background(), inv.ID, "paid")
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, updated.PaymentStatus)
	require.Equal(t, "Acme Sports Supplies", updated.VendorName)

	_, err = svc.UpdatePaymentStatus(context.Background(), inv.ID, "refunded")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.EqualError(t, err, "Invalid payment status")
	require.Equal(t, PaymentPaid, repo.invoices[inv.ID].PaymentStatus, "invalid value must not change status")

	_, err = svc.UpdatePaymentStatus(context.Background(), uuid.New(), "paid")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListInvoicesFilterValidation(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(testLogger(), repo)

	_, _, err := svc.ListInvoices(context.Background(), InvoiceFilters{PaymentStatus: "refunded"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = svc.ListInvoices(context.Background(), InvoiceFilters{PaymentStatus: "overdue"})
	require.NoError(t, err)
}
