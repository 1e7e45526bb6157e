package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// VendorStatsPayload selects which vendors to reconcile. VendorID 0 sweeps
// every vendor.
type VendorStatsPayload struct {
	VendorID int64 `json:"vendor_id"`
}

// VendorStatsPort is the slice of the vendor repository the job needs.
type VendorStatsPort interface {
	RecomputeStats(ctx context.Context, id int64) error
	IDs(ctx context.Context) ([]int64, error)
}

// NewVendorStatsTask builds a reconciliation task.
func NewVendorStatsTask(vendorID int64) (*asynq.Task, error) {
	body, err := json.Marshal(VendorStatsPayload{VendorID: vendorID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVendorStatsReconcile, body, asynq.Queue(QueueDefault)), nil
}

// NewVendorStatsHandler returns the asynq handler for reconciliation tasks.
// The rebuild is idempotent, so retries after partial sweeps are safe.
func NewVendorStatsHandler(vendors VendorStatsPort, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload VendorStatsPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.VendorID > 0 {
			return vendors.RecomputeStats(ctx, payload.VendorID)
		}
		ids, err := vendors.IDs(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := vendors.RecomputeStats(ctx, id); err != nil {
				logger.Warn("reconcile vendor stats", slog.Int64("vendor_id", id), slog.Any("error", err))
				return err
			}
		}
		logger.Info("vendor stats reconciled", slog.Int("vendors", len(ids)))
		return nil
	}
}
