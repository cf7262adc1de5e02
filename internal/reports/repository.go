package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Summary aggregates the headline numbers for the dashboard.
type Summary struct {
	TotalVendors       int                        `json:"totalVendors"`
	ActiveVendors      int                        `json:"activeVendors"`
	TotalProducts      int                        `json:"totalProducts"`
	LowStockProducts   int                        `json:"lowStockProducts"`
	TotalPOs           int                        `json:"totalPurchaseOrders"`
	POsByStatus        map[string]int             `json:"purchaseOrdersByStatus"`
	TotalGoodsReceipts int                        `json:"totalGoodsReceipts"`
	TotalInvoices      int                        `json:"totalInvoices"`
	InvoicesByPayment  map[string]int             `json:"invoicesByPaymentStatus"`
	OutstandingAmount  decimal.Decimal            `json:"outstandingAmount"`
}

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	BuildSummary(ctx context.Context) (Summary, error)
}

// Repository reads aggregates straight from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BuildSummary runs the aggregate queries. Soft-deleted rows are excluded
// everywhere, matching the default list scopes.
func (r *Repository) BuildSummary(ctx context.Context) (Summary, error) {
	s := Summary{
		POsByStatus:       make(map[string]int),
		InvoicesByPayment: make(map[string]int),
		OutstandingAmount: decimal.Zero,
	}

	err := r.pool.QueryRow(ctx, `SELECT
	         COUNT(*) FILTER (WHERE NOT is_deleted),
	         COUNT(*) FILTER (WHERE NOT is_deleted AND status = 'active')
	         FROM vendors`).Scan(&s.TotalVendors, &s.ActiveVendors)
	if err != nil {
		return Summary{}, err
	}

	err = r.pool.QueryRow(ctx, `SELECT
	         COUNT(*) FILTER (WHERE NOT is_deleted),
	         COUNT(*) FILTER (WHERE NOT is_deleted AND current_stock <= min_stock)
	         FROM products`).Scan(&s.TotalProducts, &s.LowStockProducts)
	if err != nil {
		return Summary{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM purchase_orders GROUP BY status`)
	if err != nil {
		return Summary{}, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return Summary{}, err
		}
		s.POsByStatus[status] = count
		s.TotalPOs += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts`).Scan(&s.TotalGoodsReceipts); err != nil {
		return Summary{}, err
	}

	rows, err = r.pool.Query(ctx, `SELECT payment_status, COUNT(*) FROM invoices WHERE NOT is_deleted GROUP BY payment_status`)
	if err != nil {
		return Summary{}, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return Summary{}, err
		}
		s.InvoicesByPayment[status] = count
		s.TotalInvoices += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM invoices
	         WHERE NOT is_deleted AND payment_status IN ('pending', 'overdue')`).Scan(&s.OutstandingAmount)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}
