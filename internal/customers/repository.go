package customers

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
	Create(ctx context.Context, customer Customer) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Update(ctx context.Context, id int64, customer Customer) error
	Deactivate(ctx context.Context, id int64) error
	ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error)
	RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error)
	ListPending(ctx context.Context) ([]Customer, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, name, farm_name, email, phone, region, acreage_ha, status,
approval_status, approved_by, approver_name, approved_at, rejected_by, rejected_at, rejection_reason,
created_at, updated_at`

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO customers
(name, farm_name, email, phone, region, acreage_ha, status, approval_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`,
		c.Name, c.FarmName, c.Email, c.Phone, c.Region, c.AcreageHa,
		string(c.Status), string(c.Approval.Status)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, shared.MapPgError(err, "customer with this email")
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM customers WHERE 1=1`
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
		cond := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR farm_name ILIKE $` + strconv.Itoa(argCount) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC`
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

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *repository) Update(ctx context.Context, id int64, c Customer) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET
name=$2, farm_name=$3, email=$4, phone=$5, region=$6, acreage_ha=$7, updated_at=NOW()
WHERE id=$1`,
		id, c.Name, c.FarmName, c.Email, c.Phone, c.Region, c.AcreageHa)
	if err != nil {
		return shared.MapPgError(err, "customer with this email")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(StatusInactive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// ApprovePending advances DRAFT -> REGISTERED under the pending guard.
func (r *repository) ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET
approval_status=$2, approved_by=$3, approver_name=$4, approved_at=$5, status=$6, updated_at=NOW()
WHERE id=$1 AND approval_status=$7`,
		id, string(approvals.StatusApproved), actor.ID, actor.Name, at,
		string(StatusRegistered), string(approvals.StatusPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RejectPending regresses the domain status to DRAFT.
func (r *repository) RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET
approval_status=$2, rejected_by=$3, rejected_at=$4, rejection_reason=$5, status=$6, updated_at=NOW()
WHERE id=$1 AND approval_status=$7`,
		id, string(approvals.StatusRejected), actor.ID, at, reason,
		string(StatusDraft), string(approvals.StatusPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) ListPending(ctx context.Context) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE approval_status=$1 ORDER BY created_at ASC`, string(approvals.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (Customer, error) {
	var c Customer
	var status, approvalStatus string
	err := row.Scan(&c.ID, &c.Name, &c.FarmName, &c.Email, &c.Phone, &c.Region, &c.AcreageHa, &status,
		&approvalStatus, &c.Approval.ApprovedBy, &c.Approval.ApproverName, &c.Approval.ApprovedAt,
		&c.Approval.RejectedBy, &c.Approval.RejectedAt, &c.Approval.RejectionReason,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, err
	}
	c.Status = Status(status)
	c.Approval.Status = approvals.Status(approvalStatus)
	return c, nil
}
