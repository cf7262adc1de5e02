package invoicing

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

// RepositoryPort abstracts persistence for the invoice service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id uuid.UUID) (InvoiceDetail, error)
	ListInvoices(ctx context.Context, filters InvoiceFilters) ([]InvoiceListItem, int, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
}

// TxRepository exposes the writes performed inside one transaction.
type TxRepository interface {
	NextInvoiceCode(ctx context.Context) (string, error)
	FindVendor(ctx context.Context, id uuid.UUID) (VendorRef, error)
	GetPOSnapshot(ctx context.Context, poID uuid.UUID) (string, []POItemSnapshot, error)
	InsertInvoice(ctx context.Context, inv Invoice) error
	InsertInvoiceItems(ctx context.Context, items []InvoiceItem) error
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

const invoiceColumns = `i.id, i.invoice_number, i.vendor_id, i.po_id, i.po_reference, i.invoice_date, i.amount, i.payment_status, i.invoice_document, i.status, i.is_deleted, i.created_at, i.updated_at`

// GetInvoice returns the invoice with vendor/PO display fields and items.
func (r *Repository) GetInvoice(ctx context.Context, id uuid.UUID) (InvoiceDetail, error) {
	var d InvoiceDetail
	var poCode *string
	query := fmt.Sprintf(`SELECT %s, v.vendor_name, v.email, v.phone, v.address, v.gst, po.po_code, po.total_amount
	         FROM invoices i
	         JOIN vendors v ON v.id = i.vendor_id
	         LEFT JOIN purchase_orders po ON po.id = i.po_id
	         WHERE i.id = $1 AND i.is_deleted = FALSE`, invoiceColumns)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.InvoiceNumber, &d.VendorID, &d.POID, &d.POReference, &d.InvoiceDate, &d.Amount,
		&d.PaymentStatus, &d.InvoiceDocument, &d.Status, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt,
		&d.VendorName, &d.VendorEmail, &d.VendorPhone, &d.VendorAddress, &d.VendorGST,
		&poCode, &d.POTotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return InvoiceDetail{}, shared.NewError(shared.ErrNotFound, "Invoice not found")
	}
	if err != nil {
		return InvoiceDetail{}, err
	}
	if poCode != nil {
		d.POCode = *poCode
	}

	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, product_id, product_name, quantity, unit_price, tax, discount, total
	         FROM invoice_items WHERE invoice_id = $1 ORDER BY product_name`, id)
	if err != nil {
		return InvoiceDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.Tax, &item.Discount, &item.Total); err != nil {
			return InvoiceDetail{}, err
		}
		d.Items = append(d.Items, item)
	}
	return d, rows.Err()
}

// ListInvoices returns a page of invoices matching the filters.
func (r *Repository) ListInvoices(ctx context.Context, filters InvoiceFilters) ([]InvoiceListItem, int, error) {
	where := ` WHERE i.is_deleted = FALSE`
	args := []any{}
	argNum := 1
	if filters.PaymentStatus != "" {
		where += fmt.Sprintf(` AND i.payment_status = $%d`, argNum)
		args = append(args, filters.PaymentStatus)
		argNum++
	}
	if filters.Search != "" {
		where += fmt.Sprintf(` AND (i.invoice_number ILIKE $%d OR i.po_reference ILIKE $%d)`, argNum, argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filters.Page, filters.Limit, total)
	query := fmt.Sprintf(`SELECT %s, v.vendor_name
	         FROM invoices i
	         JOIN vendors v ON v.id = i.vendor_id`, invoiceColumns) + where +
		fmt.Sprintf(` ORDER BY i.created_at DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []InvoiceListItem
	for rows.Next() {
		var it InvoiceListItem
		if err := rows.Scan(&it.ID, &it.InvoiceNumber, &it.VendorID, &it.POID, &it.POReference,
			&it.InvoiceDate, &it.Amount, &it.PaymentStatus, &it.InvoiceDocument, &it.Status,
			&it.IsDeleted, &it.CreatedAt, &it.UpdatedAt, &it.VendorName); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// UpdatePaymentStatus moves an invoice to the given payment status.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET payment_status = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`,
		status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewError(shared.ErrNotFound, "Invoice not found")
	}
	return nil
}

// Transactional operations

func (t *txRepo) NextInvoiceCode(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('invoice_code_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return shared.FormatCode(shared.CodePrefixInvoice, seq), nil
}

func (t *txRepo) FindVendor(ctx context.Context, id uuid.UUID) (VendorRef, error) {
	var v VendorRef
	err := t.tx.QueryRow(ctx, `SELECT id, vendor_name FROM vendors WHERE id = $1 AND is_deleted = FALSE`, id).Scan(&v.ID, &v.VendorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return VendorRef{}, shared.NewError(shared.ErrNotFound, "Vendor not found")
	}
	return v, err
}

// GetPOSnapshot reads the purchase order code and line items the invoice
// will copy. Read inside the creating transaction so the snapshot is
// consistent with what gets persisted.
func (t *txRepo) GetPOSnapshot(ctx context.Context, poID uuid.UUID) (string, []POItemSnapshot, error) {
	var poCode string
	err := t.tx.QueryRow(ctx, `SELECT po_code FROM purchase_orders WHERE id = $1`, poID).Scan(&poCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, shared.NewError(shared.ErrNotFound, "Purchase order not found")
	}
	if err != nil {
		return "", nil, err
	}

	rows, err := t.tx.Query(ctx, `SELECT i.product_id, p.product_name, i.quantity, i.rate, i.amount
	         FROM purchase_order_items i
	         JOIN products p ON p.id = i.product_id
	         WHERE i.po_id = $1`, poID)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	var items []POItemSnapshot
	for rows.Next() {
		var s POItemSnapshot
		if err := rows.Scan(&s.ProductID, &s.ProductName, &s.Quantity, &s.Rate, &s.Amount); err != nil {
			return "", nil, err
		}
		items = append(items, s)
	}
	return poCode, items, rows.Err()
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO invoices (id, invoice_number, vendor_id, po_id, po_reference, invoice_date, amount, payment_status, invoice_document, status, created_at, updated_at)
	         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		inv.ID, inv.InvoiceNumber, inv.VendorID, inv.POID, inv.POReference, inv.InvoiceDate,
		inv.Amount, inv.PaymentStatus, inv.InvoiceDocument, inv.Status, time.Now())
	return err
}

func (t *txRepo) InsertInvoiceItems(ctx context.Context, items []InvoiceItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`INSERT INTO invoice_items (id, invoice_id, product_id, product_name, quantity, unit_price, tax, discount, total)
		         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.InvoiceID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice, item.Tax, item.Discount, item.Total)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}
