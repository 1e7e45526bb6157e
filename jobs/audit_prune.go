package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// AuditPrunePayload sets the retention window in days.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

const defaultAuditRetentionDays = 365

// AuditPrunePort deletes audit rows older than the given number of days and
// reports how many were removed.
type AuditPrunePort interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// NewAuditPruneTask builds a prune task.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	body, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, body, asynq.Queue(QueueDefault)), nil
}

// NewAuditPruneHandler returns the asynq handler for retention pruning.
func NewAuditPruneHandler(store AuditPrunePort, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		days := payload.RetentionDays
		if days <= 0 {
			days = defaultAuditRetentionDays
		}
		removed, err := store.DeleteOlderThan(ctx, days)
		if err != nil {
			return err
		}
		logger.Info("audit rows pruned", slog.Int64("removed", removed), slog.Int("retention_days", days))
		return nil
	}
}
