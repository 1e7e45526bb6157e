package purchasing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/platform/db"
	"github.com/agriflight/backoffice/internal/shared"
)

// Repository provides PostgreSQL backed persistence for purchase orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations. The transition methods are
// conditional writes: they report false when the row was not in the required
// prior state, so two concurrent transitions can never both land.
type TxRepository interface {
	Insert(ctx context.Context, po PurchaseOrder) (int64, error)
	ApproveDraft(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error)
	RejectDraft(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) (bool, error)
	MarkInvoiced(ctx context.Context, id int64, invoiceFile *FileRef) (bool, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error)
	Cancel(ctx context.Context, id int64) (bool, error)
	AppendHistory(ctx context.Context, id int64, entry HistoryEntry) error
	BumpVendorStats(ctx context.Context, vendorID int64, amount float64, orderDate time.Time) error
	SetQuotationFile(ctx context.Context, id int64, file FileRef) error
	SetInvoiceNumberIfAbsent(ctx context.Context, id int64, number string) (string, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const poColumns = `id, number, vendor_id, status,
approval_status, COALESCE(approved_by,0), COALESCE(approver_name,''), approved_at,
COALESCE(rejected_by,0), rejected_at, COALESCE(rejection_reason,''),
order_date, expected_delivery_date, actual_delivery_date, payment_date, payment_status,
subtotal, tax_amount, shipping_charges, other_charges, discount_amount, total_amount,
currency, COALESCE(invoice_number,''), invoice_file, quotation_file, COALESCE(notes,''),
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPO(row rowScanner) (PurchaseOrder, error) {
	var po PurchaseOrder
	var invoiceFile, quotationFile []byte
	err := row.Scan(
		&po.ID, &po.Number, &po.VendorID, &po.Status,
		&po.Approval.Status, &po.Approval.ApprovedBy, &po.Approval.ApproverName, &po.Approval.ApprovedAt,
		&po.Approval.RejectedBy, &po.Approval.RejectedAt, &po.Approval.RejectionReason,
		&po.OrderDate, &po.ExpectedDeliveryDate, &po.ActualDeliveryDate, &po.PaymentDate, &po.PaymentStatus,
		&po.Subtotal, &po.TaxAmount, &po.ShippingCharges, &po.OtherCharges, &po.DiscountAmount, &po.TotalAmount,
		&po.Currency, &po.InvoiceNumber, &invoiceFile, &quotationFile, &po.Notes,
		&po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if len(invoiceFile) > 0 {
		po.InvoiceFile = &FileRef{}
		if err := json.Unmarshal(invoiceFile, po.InvoiceFile); err != nil {
			return PurchaseOrder{}, fmt.Errorf("purchasing: decode invoice file: %w", err)
		}
	}
	if len(quotationFile) > 0 {
		po.QuotationFile = &FileRef{}
		if err := json.Unmarshal(quotationFile, po.QuotationFile); err != nil {
			return PurchaseOrder{}, fmt.Errorf("purchasing: decode quotation file: %w", err)
		}
	}
	return po, nil
}

// Get returns an order with its items and full transition history.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id)
	po, err := scanPO(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, shared.ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_ref, description, quantity, unit_of_measure, unit_price, tax_rate, total_price, tax_amount
FROM purchase_order_items WHERE purchase_order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.ProductRef, &item.Description, &item.Quantity, &item.UnitOfMeasure, &item.UnitPrice, &item.TaxRate, &item.TotalPrice, &item.TaxAmount); err != nil {
			return PurchaseOrder{}, err
		}
		po.Items = append(po.Items, item)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, err
	}
	hrows, err := r.pool.Query(ctx, `SELECT status, occurred_at, updated_by, COALESCE(notes,'')
FROM purchase_order_history WHERE purchase_order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var entry HistoryEntry
		if err := hrows.Scan(&entry.Status, &entry.At, &entry.UpdatedBy, &entry.Notes); err != nil {
			return PurchaseOrder{}, err
		}
		po.History = append(po.History, entry)
	}
	return po, hrows.Err()
}

// List returns order list projections matching the filters.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]POListItem, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filters.Status != "" {
		where = append(where, "po.status = "+arg(filters.Status))
	}
	if filters.VendorID > 0 {
		where = append(where, "po.vendor_id = "+arg(filters.VendorID))
	}
	if filters.Search != "" {
		p := arg("%" + filters.Search + "%")
		where = append(where, "(po.number ILIKE "+p+" OR v.name ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders po JOIN vendors v ON v.id = po.vendor_id WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	sortCol := map[string]string{
		"number":       "po.number",
		"order_date":   "po.order_date",
		"total_amount": "po.total_amount",
		"status":       "po.status",
		"created_at":   "po.created_at",
	}[filters.SortBy]
	if sortCol == "" {
		sortCol = "po.created_at"
	}
	dir := "DESC"
	if strings.EqualFold(filters.SortDir, "asc") {
		dir = "ASC"
	}
	offset := (filters.Page - 1) * filters.Limit
	query := `SELECT po.id, po.number, po.vendor_id, v.name, po.status, po.total_amount, po.order_date, po.created_at
FROM purchase_orders po JOIN vendors v ON v.id = po.vendor_id
WHERE ` + cond + ` ORDER BY ` + sortCol + ` ` + dir + ` LIMIT ` + arg(filters.Limit) + ` OFFSET ` + arg(offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []POListItem{}
	for rows.Next() {
		var item POListItem
		if err := rows.Scan(&item.ID, &item.Number, &item.VendorID, &item.VendorName, &item.Status, &item.TotalAmount, &item.OrderDate, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ListPendingApproval returns orders whose approval gate is still open.
func (r *Repository) ListPendingApproval(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders
WHERE approval_status='PENDING' AND status='DRAFT' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pending []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, po)
	}
	return pending, rows.Err()
}

// Insert writes the order header and its line items.
func (t *txRepo) Insert(ctx context.Context, po PurchaseOrder) (int64, error) {
	invoiceFile, err := marshalFile(po.InvoiceFile)
	if err != nil {
		return 0, err
	}
	quotationFile, err := marshalFile(po.QuotationFile)
	if err != nil {
		return 0, err
	}
	var id int64
	err = t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(number, vendor_id, status, approval_status, order_date, expected_delivery_date, payment_status,
 subtotal, tax_amount, shipping_charges, other_charges, discount_amount, total_amount,
 currency, invoice_file, quotation_file, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())
RETURNING id`,
		po.Number, po.VendorID, po.Status, po.Approval.Status, po.OrderDate, po.ExpectedDeliveryDate, po.PaymentStatus,
		po.Subtotal, po.TaxAmount, po.ShippingCharges, po.OtherCharges, po.DiscountAmount, po.TotalAmount,
		po.Currency, invoiceFile, quotationFile, po.Notes).Scan(&id)
	if err != nil {
		return 0, shared.MapPgError(err, "purchase order number")
	}
	for _, item := range po.Items {
		_, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_items
(purchase_order_id, product_ref, description, quantity, unit_of_measure, unit_price, tax_rate, total_price, tax_amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			id, item.ProductRef, item.Description, item.Quantity, item.UnitOfMeasure, item.UnitPrice, item.TaxRate, item.TotalPrice, item.TaxAmount)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

// ApproveDraft stamps the approval and moves DRAFT to APPROVED. The WHERE
// clause checks both state machines so the write is a compare-and-set.
func (t *txRepo) ApproveDraft(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET status='APPROVED', approval_status='APPROVED', approved_by=$2, approver_name=$3, approved_at=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT' AND approval_status='PENDING'`, id, actor.ID, actor.Name, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RejectDraft closes the approval gate. The lifecycle status stays DRAFT.
func (t *txRepo) RejectDraft(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET approval_status='REJECTED', rejected_by=$2, rejected_at=$3, rejection_reason=$4, updated_at=NOW()
WHERE id=$1 AND status='DRAFT' AND approval_status='PENDING'`, id, actor.ID, at, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET status='DELIVERED', actual_delivery_date=$2, updated_at=NOW()
WHERE id=$1 AND status='APPROVED'`, id, deliveredAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) MarkInvoiced(ctx context.Context, id int64, invoiceFile *FileRef) (bool, error) {
	file, err := marshalFile(invoiceFile)
	if err != nil {
		return false, err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET status='INVOICED', invoice_file=COALESCE($2, invoice_file), updated_at=NOW()
WHERE id=$1 AND status='DELIVERED'`, id, file)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET status='PAID', payment_status='PAID', payment_date=$2, updated_at=NOW()
WHERE id=$1 AND status='INVOICED'`, id, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel fences on non-terminal states so a paid order can never be voided.
func (t *txRepo) Cancel(ctx context.Context, id int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
SET status='CANCELLED', updated_at=NOW()
WHERE id=$1 AND status NOT IN ('PAID','CANCELLED')`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AppendHistory adds one transition record. Rows are insert-only.
func (t *txRepo) AppendHistory(ctx context.Context, id int64, entry HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_history
(purchase_order_id, status, occurred_at, updated_by, notes)
VALUES ($1,$2,$3,$4,$5)`, id, entry.Status, entry.At, entry.UpdatedBy, entry.Notes)
	return err
}

// BumpVendorStats folds a new order into the vendor's aggregates.
func (t *txRepo) BumpVendorStats(ctx context.Context, vendorID int64, amount float64, orderDate time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE vendors
SET total_orders = total_orders + 1,
    total_order_value = total_order_value + $2,
    last_order_date = GREATEST(COALESCE(last_order_date, $3), $3),
    updated_at = NOW()
WHERE id=$1`, vendorID, amount, orderDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendor %d: %w", vendorID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) SetQuotationFile(ctx context.Context, id int64, file FileRef) error {
	payload, err := json.Marshal(file)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET quotation_file=$2, updated_at=NOW() WHERE id=$1`, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetInvoiceNumberIfAbsent assigns the number only when none is stored yet
// and returns whichever number the row ends up with, so repeated document
// renders reuse the first assignment.
func (t *txRepo) SetInvoiceNumberIfAbsent(ctx context.Context, id int64, number string) (string, error) {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET invoice_number=$2, updated_at=NOW()
WHERE id=$1 AND (invoice_number IS NULL OR invoice_number='')`, id, number)
	if err != nil {
		return "", err
	}
	var current string
	err = t.tx.QueryRow(ctx, `SELECT COALESCE(invoice_number,'') FROM purchase_orders WHERE id=$1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return current, nil
}

func marshalFile(file *FileRef) ([]byte, error) {
	if file == nil {
		return nil, nil
	}
	return json.Marshal(*file)
}
