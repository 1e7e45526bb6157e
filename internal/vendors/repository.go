package vendors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

type Repository interface {
	Create(ctx context.Context, vendor Vendor) (Vendor, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Update(ctx context.Context, id int64, vendor Vendor) error
	Deactivate(ctx context.Context, id int64) error
	ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error)
	RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error)
	ListPending(ctx context.Context) ([]Vendor, error)
	RecomputeStats(ctx context.Context, id int64) error
	IDs(ctx context.Context) ([]int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const vendorColumns = `id, code, name, contact_person, email, phone, address, category, status,
approval_status, approved_by, approver_name, approved_at, rejected_by, rejected_at, rejection_reason,
total_orders, total_order_value, last_order_date, created_at, updated_at`

func (r *repository) Create(ctx context.Context, v Vendor) (Vendor, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO vendors
(code, name, contact_person, email, phone, address, category, status, approval_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at, updated_at`,
		v.Code, v.Name, v.ContactPerson, v.Email, v.Phone, v.Address, v.Category,
		string(v.Status), string(v.Approval.Status)).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Vendor{}, shared.MapPgError(err, "vendor with this email or code")
	}
	return v, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	row := r.db.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id)
	v, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vendor{}, fmt.Errorf("vendors: vendor %d: %w", id, shared.ErrNotFound)
		}
		return Vendor{}, err
	}
	return v, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM vendors WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		cond := ` AND status = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		cond := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

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
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}

func (r *repository) Update(ctx context.Context, id int64, v Vendor) error {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET
name=$2, contact_person=$3, email=$4, phone=$5, address=$6, category=$7, updated_at=NOW()
WHERE id=$1`,
		id, v.Name, v.ContactPerson, v.Email, v.Phone, v.Address, v.Category)
	if err != nil {
		return shared.MapPgError(err, "vendor with this email")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendors: vendor %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// Deactivate is the soft-delete path: history is preserved, the status flips.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(StatusInactive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendors: vendor %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// ApprovePending is a compare-and-set: the update only lands while the row is
// still PENDING, so a raced second decision affects zero rows.
func (r *repository) ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET
approval_status=$2, approved_by=$3, approver_name=$4, approved_at=$5, status=$6, updated_at=NOW()
WHERE id=$1 AND approval_status=$7`,
		id, string(approvals.StatusApproved), actor.ID, actor.Name, at,
		string(StatusActive), string(approvals.StatusPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET
approval_status=$2, rejected_by=$3, rejected_at=$4, rejection_reason=$5, updated_at=NOW()
WHERE id=$1 AND approval_status=$6`,
		id, string(approvals.StatusRejected), actor.ID, at, reason, string(approvals.StatusPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) ListPending(ctx context.Context) ([]Vendor, error) {
	rows, err := r.db.Query(ctx, `SELECT `+vendorColumns+` FROM vendors
WHERE approval_status=$1 ORDER BY created_at ASC`, string(approvals.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// RecomputeStats rebuilds the aggregate columns from persisted purchase
// orders. Idempotent, used by the reconciliation job.
func (r *repository) RecomputeStats(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE vendors v SET
total_orders = s.cnt,
total_order_value = s.total,
last_order_date = s.last_date,
updated_at = NOW()
FROM (
	SELECT COUNT(*) AS cnt, COALESCE(SUM(total_amount), 0) AS total, MAX(order_date) AS last_date
	FROM purchase_orders WHERE vendor_id = $1 AND status <> 'CANCELLED'
) s
WHERE v.id = $1`, id)
	return err
}

// IDs returns every vendor id, for the stats reconciliation sweep.
func (r *repository) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM vendors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (Vendor, error) {
	var v Vendor
	var status, approvalStatus string
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.ContactPerson, &v.Email, &v.Phone, &v.Address, &v.Category, &status,
		&approvalStatus, &v.Approval.ApprovedBy, &v.Approval.ApproverName, &v.Approval.ApprovedAt,
		&v.Approval.RejectedBy, &v.Approval.RejectedAt, &v.Approval.RejectionReason,
		&v.TotalOrders, &v.TotalOrderValue, &v.LastOrderDate, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Vendor{}, err
	}
	v.Status = Status(status)
	v.Approval.Status = approvals.Status(approvalStatus)
	return v, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}
	switch sortBy {
	case "name":
		return "name " + dir
	case "code":
		return "code " + dir
	case "total_order_value":
		return "total_order_value " + dir
	case "status":
		return "status " + dir
	default:
		return "created_at DESC"
	}
}
