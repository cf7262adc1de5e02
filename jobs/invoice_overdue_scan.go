package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceOverdueScanner flags pending invoices as overdue once their
// invoice date is older than the configured window.
type InvoiceOverdueScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	after  time.Duration
}

// NewInvoiceOverdueScanner constructs the scanner.
func NewInvoiceOverdueScanner(pool *pgxpool.Pool, logger *slog.Logger, after time.Duration) *InvoiceOverdueScanner {
	return &InvoiceOverdueScanner{pool: pool, logger: logger, after: after}
}

// Handle processes TaskInvoiceOverdueScan tasks.
func (s *InvoiceOverdueScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	cutoff := time.Now().Add(-s.after)
	tag, err := s.pool.Exec(ctx, `UPDATE invoices SET payment_status = 'overdue', updated_at = NOW()
	         WHERE payment_status = 'pending' AND is_deleted = FALSE AND invoice_date < $1`, cutoff)
	if err != nil {
		s.logger.Error("invoice overdue scan", slog.Any("error", err))
		return err
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info("invoices flagged overdue", slog.Int64("count", tag.RowsAffected()))
	}
	return nil
}
