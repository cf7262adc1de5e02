package masterdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procura-hq/procura/internal/shared"
)

// repo implements Repository backed by PostgreSQL.
type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new master data repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

const vendorColumns = `id, vendor_code, vendor_name, contact_person, phone, email, address, gst, categories, status, is_deleted, deleted_at, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.VendorCode, &v.VendorName, &v.ContactPerson, &v.Phone, &v.Email,
		&v.Address, &v.GST, &v.Categories, &v.Status, &v.IsDeleted, &v.DeletedAt, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.NewError(shared.ErrNotFound, "Vendor not found")
	}
	return v, err
}

func (r *repo) CreateVendor(ctx context.Context, vendor Vendor) (Vendor, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('vendor_code_seq')`).Scan(&seq); err != nil {
		return Vendor{}, err
	}
	vendor.VendorCode = shared.FormatCode(shared.CodePrefixVendor, seq)

	now := time.Now()
	query := `INSERT INTO vendors (id, vendor_code, vendor_name, contact_person, phone, email, address, gst, categories, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	_, err := r.db.Exec(ctx, query, vendor.ID, vendor.VendorCode, vendor.VendorName, vendor.ContactPerson,
		vendor.Phone, vendor.Email, vendor.Address, vendor.GST, vendor.Categories, vendor.Status, now)
	if err != nil {
		if isUniqueViolation(err) {
			return Vendor{}, shared.NewError(shared.ErrConflict, "Vendor code or email already exists")
		}
		return Vendor{}, err
	}
	vendor.CreatedAt = now
	vendor.UpdatedAt = now
	return vendor, nil
}

func (r *repo) GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE id = $1 AND is_deleted = FALSE`, vendorColumns)
	return scanVendor(r.db.QueryRow(ctx, query, id))
}

// GetVendorAny bypasses the soft-delete scope so joins against historical
// documents can still resolve the vendor.
func (r *repo) GetVendorAny(ctx context.Context, id uuid.UUID) (Vendor, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE id = $1`, vendorColumns)
	return scanVendor(r.db.QueryRow(ctx, query, id))
}

func (r *repo) FindVendorByEmail(ctx context.Context, email string) (Vendor, error) {
	query := fmt.Sprintf(`SELECT %s FROM vendors WHERE email = $1 AND is_deleted = FALSE`, vendorColumns)
	return scanVendor(r.db.QueryRow(ctx, query, email))
}

func (r *repo) ListVendors(ctx context.Context, filters VendorFilters) ([]Vendor, int, error) {
	where := ` WHERE is_deleted = FALSE`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		where += ` AND status = $` + itoa(argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND (vendor_name ILIKE $` + itoa(argNum) + ` OR vendor_code ILIKE $` + itoa(argNum) + ` OR email ILIKE $` + itoa(argNum) + `)`
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filters.Page, filters.Limit, total)
	query := fmt.Sprintf(`SELECT %s FROM vendors`, vendorColumns) + where +
		` ORDER BY created_at DESC LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

func (r *repo) UpdateVendor(ctx context.Context, id uuid.UUID, vendor Vendor) error {
	query := `UPDATE vendors SET vendor_name = $1, contact_person = $2, phone = $3, email = $4,
	          address = $5, gst = $6, categories = $7, status = $8, updated_at = $9
	          WHERE id = $10 AND is_deleted = FALSE`
	_, err := r.db.Exec(ctx, query, vendor.VendorName, vendor.ContactPerson, vendor.Phone, vendor.Email,
		vendor.Address, vendor.GST, vendor.Categories, vendor.Status, time.Now(), id)
	if isUniqueViolation(err) {
		return shared.NewError(shared.ErrConflict, "Email already in use")
	}
	return err
}

func (r *repo) SoftDeleteVendor(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `UPDATE vendors SET is_deleted = TRUE, deleted_at = $1, updated_at = $1 WHERE id = $2`, now, id)
	return err
}

func (r *repo) SetVendorStatus(ctx context.Context, id uuid.UUID, status VendorStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE vendors SET status = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`, status, time.Now(), id)
	return err
}

const productColumns = `id, product_code, product_name, category, unit, sport, facility, current_stock, min_stock, status, notes, is_deleted, deleted_at, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ProductCode, &p.ProductName, &p.Category, &p.Unit, &p.Sport, &p.Facility,
		&p.CurrentStock, &p.MinStock, &p.Status, &p.Notes, &p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NewError(shared.ErrNotFound, "Product not found")
	}
	return p, err
}

func (r *repo) CreateProduct(ctx context.Context, product Product) (Product, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('product_code_seq')`).Scan(&seq); err != nil {
		return Product{}, err
	}
	product.ProductCode = shared.FormatCode(shared.CodePrefixProduct, seq)

	now := time.Now()
	query := `INSERT INTO products (id, product_code, product_name, category, unit, sport, facility, current_stock, min_stock, status, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err := r.db.Exec(ctx, query, product.ID, product.ProductCode, product.ProductName, product.Category,
		product.Unit, product.Sport, product.Facility, product.CurrentStock, product.MinStock, product.Status, product.Notes, now)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, shared.NewError(shared.ErrConflict, "Product code already exists")
		}
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repo) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 AND is_deleted = FALSE`, productColumns)
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *repo) ListProducts(ctx context.Context, filters ProductFilters) ([]Product, int, error) {
	where := ` WHERE is_deleted = FALSE`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		where += ` AND status = $` + itoa(argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.Category != "" {
		where += ` AND category = $` + itoa(argNum)
		args = append(args, filters.Category)
		argNum++
	}
	if filters.Sport != "" {
		where += ` AND sport = $` + itoa(argNum)
		args = append(args, filters.Sport)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND (product_name ILIKE $` + itoa(argNum) + ` OR product_code ILIKE $` + itoa(argNum) + `)`
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filters.Page, filters.Limit, total)
	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns) + where +
		` ORDER BY created_at DESC LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, p.PerPage, p.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, prod)
	}
	return products, total, rows.Err()
}

func (r *repo) UpdateProduct(ctx context.Context, id uuid.UUID, product Product) error {
	query := `UPDATE products SET product_name = $1, category = $2, unit = $3, sport = $4, facility = $5,
	          min_stock = $6, notes = $7, updated_at = $8
	          WHERE id = $9 AND is_deleted = FALSE`
	_, err := r.db.Exec(ctx, query, product.ProductName, product.Category, product.Unit, product.Sport,
		product.Facility, product.MinStock, product.Notes, time.Now(), id)
	return err
}

func (r *repo) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := r.db.Exec(ctx, `UPDATE products SET is_deleted = TRUE, deleted_at = $1, updated_at = $1 WHERE id = $2`, now, id)
	return err
}

func (r *repo) SetProductStatus(ctx context.Context, id uuid.UUID, status ProductStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE products SET status = $1, updated_at = $2 WHERE id = $3 AND is_deleted = FALSE`, status, time.Now(), id)
	return err
}

// itoa converts int to string for dynamic query building.
func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
