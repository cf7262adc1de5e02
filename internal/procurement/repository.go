package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procura-hq/procura/internal/platform/db"
	"github.com/procura-hq/procura/internal/shared"
)

// RepositoryPort abstracts persistence so the service can run against an
// in-memory double in tests.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, id uuid.UUID) (PODetail, error)
	ListPOs(ctx context.Context, filters POFilters) ([]POListItem, int, error)
	GetGRN(ctx context.Context, id uuid.UUID) (GRNDetail, error)
	ListGRNs(ctx context.Context) ([]GRNListItem, error)
}

// TxRepository exposes the writes performed inside one transaction.
type TxRepository interface {
	NextPOCode(ctx context.Context) (string, error)
	NextGRNCode(ctx context.Context) (string, error)
	FindVendor(ctx context.Context, id uuid.UUID) (VendorRef, error)
	FindProduct(ctx context.Context, id uuid.UUID) (ProductRef, error)
	FindPO(ctx context.Context, id uuid.UUID) (PORef, error)
	InsertPO(ctx context.Context, po PurchaseOrder) error
	InsertPOItems(ctx context.Context, items []PurchaseOrderItem) error
	UpdatePOStatus(ctx context.Context, id uuid.UUID, status POStatus) error
	InsertGRN(ctx context.Context, grn GoodsReceipt) error
	InsertGRNItems(ctx context.Context, items []GoodsReceiptItem) error
	AddProductStock(ctx context.Context, productID uuid.UUID, qty int) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const poColumns = `po.id, po.po_code, po.vendor_id, po.total_items, po.total_amount, po.expected_delivery, po.notes, po.status, po.created_at, po.updated_at`

// GetPO returns the purchase order with vendor name and items.
func (r *Repository) GetPO(ctx context.Context, id uuid.UUID) (PODetail, error) {
	var d PODetail
	query := fmt.Sprintf(`SELECT %s, v.vendor_name
	         FROM purchase_orders po
	         JOIN vendors v ON v.id = po.vendor_id
	         WHERE po.id = $1`, poColumns)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.POCode, &d.VendorID, &d.TotalItems, &d.TotalAmount, &d.ExpectedDelivery,
		&d.Notes, &d.Status, &d.CreatedAt, &d.UpdatedAt, &d.VendorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return PODetail{}, shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	if err != nil {
		return PODetail{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT i.id, i.po_id, i.product_id, i.quantity, i.rate, i.amount, p.product_name, p.product_code
	         FROM purchase_order_items i
	         JOIN products p ON p.id = i.product_id
	         WHERE i.po_id = $1
	         ORDER BY p.product_code`, id)
	if err != nil {
		return PODetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item POItemView
		if err := rows.Scan(&item.ID, &item.POID, &item.ProductID, &item.Quantity, &item.Rate,
			&item.Amount, &item.ProductName, &item.ProductCode); err != nil {
			return PODetail{}, err
		}
		d.Items = append(d.Items, item)
	}
	return d, rows.Err()
}

// ListPOs returns a page of purchase orders matching the filters.
func (r *Repository) ListPOs(ctx context.Context, filters POFilters) ([]POListItem, int, error) {
	where := ``
	args := []any{}
	argNum := 1
	if filters.Search != "" {
		where = ` WHERE po.po_code ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders po`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filters.Page, filters.Limit, total)
	query := fmt.Sprintf(`SELECT %s, v.vendor_name
	         FROM purchase_orders po
	         JOIN vendors v ON v.id = po.vendor_id`, poColumns) + where +
		fmt.Sprintf(` ORDER BY po.created_at DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []POListItem
	for rows.Next() {
		var it POListItem
		if err := rows.Scan(&it.ID, &it.POCode, &it.VendorID, &it.TotalItems, &it.TotalAmount,
			&it.ExpectedDelivery, &it.Notes, &it.Status, &it.CreatedAt, &it.UpdatedAt, &it.VendorName); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

const grnColumns = `g.id, g.grn_code, g.po_id, g.vendor_id, g.received_date, g.status, g.created_at`

// GetGRN returns the goods receipt with vendor/PO display fields and items.
func (r *Repository) GetGRN(ctx context.Context, id uuid.UUID) (GRNDetail, error) {
	var d GRNDetail
	query := fmt.Sprintf(`SELECT %s, v.vendor_name, po.po_code
	         FROM goods_receipts g
	         JOIN vendors v ON v.id = g.vendor_id
	         JOIN purchase_orders po ON po.id = g.po_id
	         WHERE g.id = $1`, grnColumns)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.GRNCode, &d.POID, &d.VendorID, &d.ReceivedDate, &d.Status, &d.CreatedAt,
		&d.VendorName, &d.POCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return GRNDetail{}, shared.NewError(shared.ErrNotFound, "Goods receipt not found")
	}
	if err != nil {
		return GRNDetail{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT i.id, i.goods_receipt_id, i.product_id, i.ordered_qty, i.received_qty, i.damaged_qty, i.status, p.product_name, p.product_code
	         FROM goods_receipt_items i
	         JOIN products p ON p.id = i.product_id
	         WHERE i.goods_receipt_id = $1
	         ORDER BY p.product_code`, id)
	if err != nil {
		return GRNDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item GRNItemView
		if err := rows.Scan(&item.ID, &item.GoodsReceiptID, &item.ProductID, &item.OrderedQty,
			&item.ReceivedQty, &item.DamagedQty, &item.Status, &item.ProductName, &item.ProductCode); err != nil {
			return GRNDetail{}, err
		}
		d.Items = append(d.Items, item)
	}
	return d, rows.Err()
}

// ListGRNs returns every goods receipt, newest first.
func (r *Repository) ListGRNs(ctx context.Context) ([]GRNListItem, error) {
	query := fmt.Sprintf(`SELECT %s, v.vendor_name, po.po_code
	         FROM goods_receipts g
	         JOIN vendors v ON v.id = g.vendor_id
	         JOIN purchase_orders po ON po.id = g.po_id
	         ORDER BY g.created_at DESC`, grnColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GRNListItem
	for rows.Next() {
		var it GRNListItem
		if err := rows.Scan(&it.ID, &it.GRNCode, &it.POID, &it.VendorID, &it.ReceivedDate,
			&it.Status, &it.CreatedAt, &it.VendorName, &it.POCode); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Transactional operations

func (t *txRepo) NextPOCode(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('po_code_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return shared.FormatCode(shared.CodePrefixPO, seq), nil
}

func (t *txRepo) NextGRNCode(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('grn_code_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return shared.FormatCode(shared.CodePrefixGRN, seq), nil
}

func (t *txRepo) FindVendor(ctx context.Context, id uuid.UUID) (VendorRef, error) {
	var v VendorRef
	err := t.tx.QueryRow(ctx, `SELECT id, vendor_name FROM vendors WHERE id = $1 AND is_deleted = FALSE`, id).Scan(&v.ID, &v.VendorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return VendorRef{}, shared.NewError(shared.ErrNotFound, "Vendor not found")
	}
	return v, err
}

func (t *txRepo) FindProduct(ctx context.Context, id uuid.UUID) (ProductRef, error) {
	var p ProductRef
	err := t.tx.QueryRow(ctx, `SELECT id, product_name, product_code, current_stock FROM products WHERE id = $1 AND is_deleted = FALSE`, id).
		Scan(&p.ID, &p.ProductName, &p.ProductCode, &p.CurrentStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRef{}, shared.NewError(shared.ErrNotFound, "Product not found")
	}
	return p, err
}

func (t *txRepo) FindPO(ctx context.Context, id uuid.UUID) (PORef, error) {
	var po PORef
	err := t.tx.QueryRow(ctx, `SELECT id, po_code, status FROM purchase_orders WHERE id = $1`, id).
		Scan(&po.ID, &po.POCode, &po.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return PORef{}, shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	return po, err
}

func (t *txRepo) InsertPO(ctx context.Context, po PurchaseOrder) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_orders (id, po_code, vendor_id, total_items, total_amount, expected_delivery, notes, status, created_at, updated_at)
	         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		po.ID, po.POCode, po.VendorID, po.TotalItems, po.TotalAmount, po.ExpectedDelivery, po.Notes, po.Status, time.Now())
	return err
}

func (t *txRepo) InsertPOItems(ctx context.Context, items []PurchaseOrderItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO purchase_order_items (id, po_id, product_id, quantity, rate, amount)
		         VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.POID, item.ProductID, item.Quantity, item.Rate, item.Amount)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id uuid.UUID, status POStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	return nil
}

func (t *txRepo) InsertGRN(ctx context.Context, grn GoodsReceipt) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO goods_receipts (id, grn_code, po_id, vendor_id, received_date, status, created_at)
	         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		grn.ID, grn.GRNCode, grn.POID, grn.VendorID, grn.ReceivedDate, grn.Status, time.Now())
	return err
}

func (t *txRepo) InsertGRNItems(ctx context.Context, items []GoodsReceiptItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO goods_receipt_items (id, goods_receipt_id, product_id, ordered_qty, received_qty, damaged_qty, status)
		         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.GoodsReceiptID, item.ProductID, item.OrderedQty, item.ReceivedQty, item.DamagedQty, item.Status)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

// AddProductStock applies the increment in SQL so concurrent receipts on the
// same product serialize on the row instead of racing a read-modify-write.
func (t *txRepo) AddProductStock(ctx context.Context, productID uuid.UUID, qty int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET current_stock = current_stock + $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`,
		qty, time.Now(), productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewError(shared.ErrNotFound, "Product not found")
	}
	return nil
}
