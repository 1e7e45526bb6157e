package employees

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
	Create(ctx context.Context, employee Employee) (Employee, error)
	Get(ctx context.Context, id int64) (Employee, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error)
	Deactivate(ctx context.Context, id int64) error
	ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error)
	RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error)
	ListPending(ctx context.Context) ([]Employee, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const employeeColumns = `id, code, name, email, phone, designation, department, join_date, status,
approval_status, approved_by, approver_name, approved_at, rejected_by, rejected_at, rejection_reason,
password_hash, created_at, updated_at`

func (r *repository) Create(ctx context.Context, e Employee) (Employee, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO employees
(code, name, email, phone, designation, department, join_date, status, approval_status, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at, updated_at`,
		e.Code, e.Name, e.Email, e.Phone, e.Designation, e.Department, e.JoinDate,
		string(e.Status), string(e.Approval.Status), e.PasswordHash).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Employee{}, shared.MapPgError(err, "employee with this email or code")
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Employee, error) {
	row := r.db.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, fmt.Errorf("employees: employee %d: %w", id, shared.ErrNotFound)
		}
		return Employee{}, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM employees WHERE 1=1`
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

	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE employees SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(StatusInactive))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employees: employee %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE employees SET
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
	tag, err := r.db.Exec(ctx, `UPDATE employees SET
approval_status=$2, rejected_by=$3, rejected_at=$4, rejection_reason=$5, updated_at=NOW()
WHERE id=$1 AND approval_status=$6`,
		id, string(approvals.StatusRejected), actor.ID, at, reason, string(approvals.StatusPending))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) ListPending(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.Query(ctx, `SELECT `+employeeColumns+` FROM employees
WHERE approval_status=$1 ORDER BY created_at ASC`, string(approvals.StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var e Employee
	var status, approvalStatus string
	err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Email, &e.Phone, &e.Designation, &e.Department, &e.JoinDate, &status,
		&approvalStatus, &e.Approval.ApprovedBy, &e.Approval.ApproverName, &e.Approval.ApprovedAt,
		&e.Approval.RejectedBy, &e.Approval.RejectedAt, &e.Approval.RejectionReason,
		&e.PasswordHash, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Employee{}, err
	}
	e.Status = Status(status)
	e.Approval.Status = approvals.Status(approvalStatus)
	return e, nil
}
