package audit

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WindowParams narrows the timeline query. Optional filters are NULL when
// unset so the SQL can skip them.
type WindowParams struct {
	FromAt     pgtype.Timestamptz
	ToAt       pgtype.Timestamptz
	Actor      pgtype.Text
	TargetType pgtype.Text
	Action     pgtype.Text
	Severity   pgtype.Text
	OffsetRows int32
	LimitRows  int32
}

// Repository reads audit_logs written by shared.AuditLogger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const timelineQuery = `SELECT id, occurred_at, action, actor_name, actor_role,
target_type, target_id, target_name, description, status, severity
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::text IS NULL OR actor_name ILIKE '%' || $3 || '%')
  AND ($4::text IS NULL OR target_type = $4)
  AND ($5::text IS NULL OR action = $5)
  AND ($6::text IS NULL OR severity = $6)
ORDER BY occurred_at DESC, id DESC`

// Window returns one page of timeline rows, newest first.
func (r *Repository) Window(ctx context.Context, params WindowParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery+` OFFSET $7 LIMIT $8`,
		params.FromAt, params.ToAt, params.Actor, params.TargetType, params.Action, params.Severity,
		params.OffsetRows, params.LimitRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// All returns every matching timeline row without paging, for exports.
func (r *Repository) All(ctx context.Context, params WindowParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery,
		params.FromAt, params.ToAt, params.Actor, params.TargetType, params.Action, params.Severity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]TimelineRow, error) {
	result := []TimelineRow{}
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.ID, &row.At, &row.Action, &row.ActorName, &row.ActorRole,
			&row.TargetType, &row.TargetID, &row.TargetName, &row.Description, &row.Status, &row.Severity); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// DeleteOlderThan removes rows past the retention window and reports how
// many were deleted.
func (r *Repository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs
WHERE occurred_at < NOW() - ($1::int * INTERVAL '1 day')`, days)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
