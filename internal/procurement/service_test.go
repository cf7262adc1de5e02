package procurement

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

type memoryProcRepo struct {
	vendors  map[uuid.UUID]VendorRef
	products map[uuid.UUID]ProductRef
	pos      map[uuid.UUID]PurchaseOrder
	poItems  map[uuid.UUID][]PurchaseOrderItem
	grns     map[uuid.UUID]GoodsReceipt
	grnItems map[uuid.UUID][]GoodsReceiptItem
	poSeq    int64
	grnSeq   int64

	// grnInserts counts InsertGRN calls and survives rollback, so tests can
	// tell "never attempted" apart from "written then rolled back".
	grnInserts int
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		vendors:  make(map[uuid.UUID]VendorRef),
		products: make(map[uuid.UUID]ProductRef),
		pos:      make(map[uuid.UUID]PurchaseOrder),
		poItems:  make(map[uuid.UUID][]PurchaseOrderItem),
		grns:     make(map[uuid.UUID]GoodsReceipt),
		grnItems: make(map[uuid.UUID][]GoodsReceiptItem),
	}
}

func (r *memoryProcRepo) snapshot() *memoryProcRepo {
	clone := newMemoryProcRepo()
	for k, v := range r.vendors {
		clone.vendors[k] = v
	}
	for k, v := range r.products {
		clone.products[k] = v
	}
	for k, v := range r.pos {
		clone.pos[k] = v
	}
	for k, v := range r.poItems {
		clone.poItems[k] = append([]PurchaseOrderItem(nil), v...)
	}
	for k, v := range r.grns {
		clone.grns[k] = v
	}
	for k, v := range r.grnItems {
		clone.grnItems[k] = append([]GoodsReceiptItem(nil), v...)
	}
	clone.poSeq = r.poSeq
	clone.grnSeq = r.grnSeq
	return clone
}

func (r *memoryProcRepo) restore(from *memoryProcRepo) {
	r.vendors = from.vendors
	r.products = from.products
	r.pos = from.pos
	r.poItems = from.poItems
	r.grns = from.grns
	r.grnItems = from.grnItems
	r.poSeq = from.poSeq
	r.grnSeq = from.grnSeq
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

// WithTx mimics rollback semantics by restoring a pre-transaction snapshot
// when the callback fails.
func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := r.snapshot()
	if err := fn(ctx, &memoryProcTx{repo: r}); err != nil {
		r.restore(before)
		return err
	}
	return nil
}

func (r *memoryProcRepo) GetPO(ctx context.Context, id uuid.UUID) (PODetail, error) {
	po, ok := r.pos[id]
	if !ok {
		return PODetail{}, shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	d := PODetail{PurchaseOrder: po, VendorName: r.vendors[po.VendorID].VendorName}
	for _, item := range r.poItems[id] {
		p := r.products[item.ProductID]
		d.Items = append(d.Items, POItemView{PurchaseOrderItem: item, ProductName: p.ProductName, ProductCode: p.ProductCode})
	}
	return d, nil
}

func (r *memoryProcRepo) ListPOs(ctx context.Context, filters POFilters) ([]POListItem, int, error) {
	var out []POListItem
	for _, po := range r.pos {
		out = append(out, POListItem{PurchaseOrder: po, VendorName: r.vendors[po.VendorID].VendorName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].POCode < out[j].POCode })
	return out, len(out), nil
}

func (r *memoryProcRepo) GetGRN(ctx context.Context, id uuid.UUID) (GRNDetail, error) {
	grn, ok := r.grns[id]
	if !ok {
		return GRNDetail{}, shared.NewError(shared.ErrNotFound, "Goods receipt not found")
	}
	d := GRNDetail{
		GoodsReceipt: grn,
		VendorName:   r.vendors[grn.VendorID].VendorName,
		POCode:       r.pos[grn.POID].POCode,
	}
	for _, item := range r.grnItems[id] {
		p := r.products[item.ProductID]
		d.Items = append(d.Items, GRNItemView{GoodsReceiptItem: item, ProductName: p.ProductName, ProductCode: p.ProductCode})
	}
	return d, nil
}

func (r *memoryProcRepo) ListGRNs(ctx context.Context) ([]GRNListItem, error) {
	var out []GRNListItem
	for _, grn := range r.grns {
		out = append(out, GRNListItem{
			GoodsReceipt: grn,
			VendorName:   r.vendors[grn.VendorID].VendorName,
			POCode:       r.pos[grn.POID].POCode,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GRNCode < out[j].GRNCode })
	return out, nil
}

func (t *memoryProcTx) NextPOCode(ctx context.Context) (string, error) {
	t.repo.poSeq++
	return shared.FormatCode(shared.CodePrefixPO, t.repo.poSeq), nil
}

func (t *memoryProcTx) NextGRNCode(ctx context.Context) (string, error) {
	t.repo.grnSeq++
	return shared.FormatCode(shared.CodePrefixGRN, t.repo.grnSeq), nil
}

func (t *memoryProcTx) FindVendor(ctx context.Context, id uuid.UUID) (VendorRef, error) {
	v, ok := t.repo.vendors[id]
	if !ok {
		return VendorRef{}, shared.NewError(shared.ErrNotFound, "Vendor not found")
	}
	return v, nil
}

func (t *memoryProcTx) FindProduct(ctx context.Context, id uuid.UUID) (ProductRef, error) {
	p, ok := t.repo.products[id]
	if !ok {
		return ProductRef{}, shared.NewError(shared.ErrNotFound, "Product not found")
	}
	return p, nil
}

func (t *memoryProcTx) FindPO(ctx context.Context, id uuid.UUID) (PORef, error) {
	po, ok := t.repo.pos[id]
	if !ok {
		return PORef{}, shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	return PORef{ID: po.ID, POCode: po.POCode, Status: po.Status}, nil
}

func (t *memoryProcTx) InsertPO(ctx context.Context, po PurchaseOrder) error {
	po.CreatedAt = time.Now()
	po.UpdatedAt = po.CreatedAt
	t.repo.pos[po.ID] = po
	return nil
}

func (t *memoryProcTx) InsertPOItems(ctx context.Context, items []PurchaseOrderItem) error {
	for _, item := range items {
		t.repo.poItems[item.POID] = append(t.repo.poItems[item.POID], item)
	}
	return nil
}

func (t *memoryProcTx) UpdatePOStatus(ctx context.Context, id uuid.UUID, status POStatus) error {
	po, ok := t.repo.pos[id]
	if !ok {
		return shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	po.Status = status
	po.UpdatedAt = time.Now()
	t.repo.pos[id] = po
	return nil
}

func (t *memoryProcTx) InsertGRN(ctx context.Context, grn GoodsReceipt) error {
	t.repo.grnInserts++
	grn.CreatedAt = time.Now()
	t.repo.grns[grn.ID] = grn
	return nil
}

func (t *memoryProcTx) InsertGRNItems(ctx context.Context, items []GoodsReceiptItem) error {
	for _, item := range items {
		t.repo.grnItems[item.GoodsReceiptID] = append(t.repo.grnItems[item.GoodsReceiptID], item)
	}
	return nil
}

func (t *memoryProcTx) AddProductStock(ctx context.Context, productID uuid.UUID, qty int) error {
	p, ok := t.repo.products[productID]
	if !ok {
		return shared.NewError(shared.ErrNotFound, "Product not found")
	}
	p.CurrentStock += qty
	t.repo.products[productID] = p
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedVendor(r *memoryProcRepo) uuid.UUID {
	id := uuid.New()
	r.vendors[id] = VendorRef{ID: id, VendorName: "Acme Sports Supplies"}
	return id
}

func seedProduct(r *memoryProcRepo, stock int) uuid.UUID {
	id := uuid.New()
	r.products[id] = ProductRef{ID: id, ProductName: "Tennis Ball", ProductCode: "PRD001", CurrentStock: stock}
	return id
}

func TestCreatePurchaseOrderComputesTotals(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	p1 := seedProduct(repo, 0)
	p2 := seedProduct(repo, 0)

	po, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now().AddDate(0, 0, 7),
		Items: []POItemInput{
			{ProductID: p1, Quantity: 10, Rate: decimal.NewFromInt(100)},
			{ProductID: p2, Quantity: 3, Rate: decimal.RequireFromString("24.50")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "PO001", po.POCode)
	require.Equal(t, POStatusDraft, po.Status)
	require.Equal(t, 13, po.TotalItems)
	require.True(t, po.TotalAmount.Equal(decimal.RequireFromString("1073.50")), po.TotalAmount.String())
	require.Len(t, po.Items, 2)
	require.Equal(t, "Acme Sports Supplies", po.VendorName)
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)

	_, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now(),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	productID := seedProduct(repo, 0)
	_, err = svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now(),
		Items:            []POItemInput{{ProductID: productID, Quantity: 0, Rate: decimal.NewFromInt(5)}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreatePurchaseOrderUnknownVendorOrProduct(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	productID := seedProduct(repo, 0)

	_, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         uuid.New(),
		ExpectedDelivery: time.Now(),
		Items:            []POItemInput{{ProductID: productID, Quantity: 1, Rate: decimal.NewFromInt(5)}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now(),
		Items:            []POItemInput{{ProductID: uuid.New(), Quantity: 1, Rate: decimal.NewFromInt(5)}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.pos, "failed create must not persist an order")
}

func TestUpdatePurchaseOrderStatus(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	productID := seedProduct(repo, 0)

	po, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now(),
		Items:            []POItemInput{{ProductID: productID, Quantity: 1, Rate: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePurchaseOrderStatus(context.Background(), po.ID, "sent")
	require.NoError(t, err)
	require.Equal(t, POStatusSent, updated.Status)

	// Permissive by design: cancelled can move back to draft.
	updated, err = svc.UpdatePurchaseOrderStatus(context.Background(), po.ID, "cancelled")
	require.NoError(t, err)
	require.Equal(t, POStatusCancelled, updated.Status)
	updated, err = svc.UpdatePurchaseOrderStatus(context.Background(), po.ID, "draft")
	require.NoError(t, err)
	require.Equal(t, POStatusDraft, updated.Status)

	_, err = svc.UpdatePurchaseOrderStatus(context.Background(), po.ID, "archived")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdatePurchaseOrderStatus(context.Background(), uuid.New(), "sent")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateGoodsReceiptHappyPath(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	productID := seedProduct(repo, 0)

	po, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now(),
		Items:            []POItemInput{{ProductID: productID, Quantity: 10, Rate: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)
	require.True(t, po.TotalAmount.Equal(decimal.NewFromInt(1000)))

	_, err = svc.UpdatePurchaseOrderStatus(context.Background(), po.ID, "sent")
	require.NoError(t, err)

	grn, err := svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:     po.ID,
		VendorID: vendorID,
		Items:    []GRNItemInput{{ProductID: productID, OrderedQty: 10, ReceivedQty: 8, DamagedQty: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "GRN001", grn.GRNCode)
	require.Equal(t, GRNStatusConfirmed, grn.Status)
	require.Len(t, grn.Items, 1)
	require.Equal(t, GRNItemPartial, grn.Items[0].Status)
	require.False(t, grn.ReceivedDate.IsZero())

	// Stock moves by what was received, not ordered.
	require.Equal(t, 8, repo.products[productID].CurrentStock)
	require.Equal(t, POStatusReceived, repo.pos[po.ID].Status)
}

func TestGoodsReceiptItemStatusBoundary(t *testing.T) {
	require.Equal(t, GRNItemComplete, GRNItemStatusFor(10, 10))
	require.Equal(t, GRNItemComplete, GRNItemStatusFor(12, 10))
	require.Equal(t, GRNItemPartial, GRNItemStatusFor(9, 10))
	require.Equal(t, GRNItemPartial, GRNItemStatusFor(0, 10))
	require.Equal(t, GRNItemComplete, GRNItemStatusFor(0, 0))
}

func TestCreateGoodsReceiptRollsBackOnMissingProduct(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	p1 := seedProduct(repo, 5)
	p2 := seedProduct(repo, 5)
	p3 := seedProduct(repo, 5)

	po, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID:         vendorID,
		ExpectedDelivery: time.Now(),
		Items: []POItemInput{
			{ProductID: p1, Quantity: 2, Rate: decimal.NewFromInt(10)},
			{ProductID: p2, Quantity: 2, Rate: decimal.NewFromInt(10)},
			{ProductID: p3, Quantity: 2, Rate: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	_, err = svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:     po.ID,
		VendorID: vendorID,
		Items: []GRNItemInput{
			{ProductID: p1, OrderedQty: 2, ReceivedQty: 2},
			{ProductID: p2, OrderedQty: 2, ReceivedQty: 2},
			{ProductID: uuid.New(), OrderedQty: 2, ReceivedQty: 2},
		},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	// Full rollback: no receipt, no items, no stock movement, PO untouched.
	require.Empty(t, repo.grns)
	require.Empty(t, repo.grnItems)
	require.Equal(t, 5, repo.products[p1].CurrentStock)
	require.Equal(t, 5, repo.products[p2].CurrentStock)
	require.Equal(t, POStatusDraft, repo.pos[po.ID].Status)
}

func TestCreateGoodsReceiptUnknownPO(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	productID := seedProduct(repo, 0)

	_, err := svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
		POID:     uuid.New(),
		VendorID: vendorID,
		Items:    []GRNItemInput{{ProductID: productID, OrderedQty: 1, ReceivedQty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.grns)
	require.Equal(t, 0, repo.products[productID].CurrentStock)

	// The order is resolved before the receipt row is written, so a bad poId
	// can never reach the insert and surface as a foreign key error.
	require.Zero(t, repo.grnInserts)
}

func TestListGoodsReceiptsIsUnpaginated(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := NewService(testLogger(), repo)
	vendorID := seedVendor(repo)
	productID := seedProduct(repo, 0)

	for i := 0; i < 15; i++ {
		po, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
			VendorID:         vendorID,
			ExpectedDelivery: time.Now(),
			Items:            []POItemInput{{ProductID: productID, Quantity: 1, Rate: decimal.NewFromInt(1)}},
		})
		require.NoError(t, err)
		_, err = svc.CreateGoodsReceipt(context.Background(), CreateGRNInput{
			POID:     po.ID,
			VendorID: vendorID,
			Items:    []GRNItemInput{{ProductID: productID, OrderedQty: 1, ReceivedQty: 1}},
		})
		require.NoError(t, err)
	}

	receipts, err := svc.ListGoodsReceipts(context.Background())
	require.NoError(t, err)
	require.Len(t, receipts, 15)
}
