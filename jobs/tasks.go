package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockStatusScan recomputes product stock statuses from current
	// stock versus minimum stock.
	TaskStockStatusScan = "inventory:stock-status-scan"
	// TaskInvoiceOverdueScan flags pending invoices past their due window
	// as overdue.
	TaskInvoiceOverdueScan = "invoicing:overdue-scan"
)

// ScanPayload carries scheduling metadata for periodic scans.
type ScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockStatusScanTask constructs an Asynq task for the stock status scan.
func NewStockStatusScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockStatusScan, body, asynq.Queue(QueueDefault)), nil
}

// NewInvoiceOverdueScanTask constructs an Asynq task for the overdue scan.
func NewInvoiceOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueScan, body, asynq.Queue(QueueDefault)), nil
}
