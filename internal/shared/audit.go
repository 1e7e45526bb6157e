package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Severity classifies audit events.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// AuditEvent represents a record stored in audit_logs.
type AuditEvent struct {
	ID          uuid.UUID
	Action      string
	ActorID     int64
	ActorName   string
	ActorRole   string
	TargetType  string
	TargetID    string
	TargetName  string
	Description string
	Status      string
	Severity    Severity
	At          time.Time
}

// AuditLogger writes records into audit_logs. Recording is best-effort:
// failures are logged at warn level and must never fail the primary
// operation, so callers ignore the returned error.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the event entry.
func (l *AuditLogger) Record(ctx context.Context, event AuditEvent) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if event.Action == "" || event.TargetType == "" || event.TargetID == "" {
		return errors.New("audit event requires action/target_type/target_id")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Severity == "" {
		event.Severity = SeverityLow
	}
	if event.Status == "" {
		event.Status = "SUCCESS"
	}
	_, err := l.pool.Exec(ctx, `INSERT INTO audit_logs
(id, action, actor_id, actor_name, actor_role, target_type, target_id, target_name, description, status, severity, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE(NULLIF($12, '0001-01-01 00:00:00+00'::timestamptz), NOW()))`,
		event.ID, event.Action, event.ActorID, event.ActorName, event.ActorRole,
		event.TargetType, event.TargetID, event.TargetName, event.Description,
		event.Status, string(event.Severity), event.At)
	if err != nil {
		l.logger.Warn("record audit event",
			slog.String("action", event.Action),
			slog.String("target", event.TargetType+":"+event.TargetID),
			slog.Any("error", err))
		return err
	}
	return nil
}
