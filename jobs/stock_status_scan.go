package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockStatusScanner recomputes product stock statuses in bulk. Goods
// receipts only move current_stock; the derived status catches up here
// rather than inline on every receipt.
type StockStatusScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStockStatusScanner constructs the scanner.
func NewStockStatusScanner(pool *pgxpool.Pool, logger *slog.Logger) *StockStatusScanner {
	return &StockStatusScanner{pool: pool, logger: logger}
}

// Handle processes TaskStockStatusScan tasks.
func (s *StockStatusScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tag, err := s.pool.Exec(ctx, `UPDATE products SET status = derived.status, updated_at = NOW()
	         FROM (SELECT id, CASE
	                 WHEN current_stock <= 0 THEN 'out_of_stock'
	                 WHEN current_stock <= min_stock THEN 'low_stock'
	                 ELSE 'in_stock'
	               END AS status
	               FROM products WHERE is_deleted = FALSE) AS derived
	         WHERE products.id = derived.id AND products.status <> derived.status`)
	if err != nil {
		s.logger.Error("stock status scan", slog.Any("error", err))
		return err
	}
	s.logger.Info("stock status scan complete", slog.Int64("updated", tag.RowsAffected()))
	return nil
}
