package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EntityCounts aggregates one approvable table by domain status.
func (r *Repository) EntityCounts(ctx context.Context, table string) (EntityCounts, error) {
	// Table names come from a fixed set in the service, never from input.
	var counts EntityCounts
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM `+table+` GROUP BY status ORDER BY status`)
	if err != nil {
		return EntityCounts{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return EntityCounts{}, err
		}
		counts.ByStatus = append(counts.ByStatus, sc)
		counts.Total += sc.Count
	}
	if err := rows.Err(); err != nil {
		return EntityCounts{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+` WHERE approval_status='PENDING'`).Scan(&counts.PendingApproval)
	return counts, err
}

// OrdersByStatus aggregates purchase order counts and value per status.
func (r *Repository) OrdersByStatus(ctx context.Context) ([]OrderValue, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(total_amount),0)
FROM purchase_orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []OrderValue{}
	for rows.Next() {
		var ov OrderValue
		if err := rows.Scan(&ov.Status, &ov.Count, &ov.Value); err != nil {
			return nil, err
		}
		result = append(result, ov)
	}
	return result, rows.Err()
}

// PendingPaymentTotal sums the open liability: delivered or invoiced orders
// not yet paid.
func (r *Repository) PendingPaymentTotal(ctx context.Context) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount),0)
FROM purchase_orders WHERE status IN ('DELIVERED','INVOICED')`).Scan(&total)
	return total, err
}

// TopVendors returns the highest-value vendors by accumulated order value.
func (r *Repository) TopVendors(ctx context.Context, limit int) ([]VendorRank, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, total_orders, total_order_value
FROM vendors WHERE status <> 'INACTIVE'
ORDER BY total_order_value DESC, total_orders DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []VendorRank{}
	for rows.Next() {
		var vr VendorRank
		if err := rows.Scan(&vr.VendorID, &vr.Name, &vr.Orders, &vr.OrderValue); err != nil {
			return nil, err
		}
		result = append(result, vr)
	}
	return result, rows.Err()
}
