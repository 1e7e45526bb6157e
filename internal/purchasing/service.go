package purchasing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, filters ListFilters) ([]POListItem, int, error)
	ListPendingApproval(ctx context.Context) ([]PurchaseOrder, error)
}

// AuditPort records audit events; failures never fail a transition.
type AuditPort interface {
	Record(ctx context.Context, event shared.AuditEvent) error
}

// SequencePort issues PO and invoice numbers.
type SequencePort interface {
	Next(ctx context.Context, kind shared.SequenceKind) (string, error)
}

// CacheInvalidator is notified after every accepted mutation so dashboard
// reads stay fresh.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service drives the purchase order workflow state machine.
type Service struct {
	repo  RepositoryPort
	seq   SequencePort
	audit AuditPort
	cache CacheInvalidator
	now   func() time.Time
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, seq SequencePort, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, seq: seq, audit: audit, cache: cache, now: time.Now}
}

// LineItemInput describes one ordered position.
type LineItemInput struct {
	ProductRef    string
	Description   string
	Quantity      float64
	UnitOfMeasure string
	UnitPrice     float64
	TaxRate       float64
}

// CreateInput describes order creation. Totals are always derived, any
// caller-supplied totals are ignored.
type CreateInput struct {
	Number               string
	VendorID             int64
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	Items                []LineItemInput
	ShippingCharges      float64
	OtherCharges         float64
	DiscountAmount       float64
	Currency             string
	Notes                string
	QuotationFile        *FileRef
	CreatedBy            approvals.Actor
}

// Create persists a new order in DRAFT with a PENDING approval gate. The
// referenced vendor's aggregate stats are bumped in the same transaction.
// No history entry is written for the initial DRAFT state.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if err := validateCreate(input); err != nil {
		return PurchaseOrder{}, err
	}
	number := input.Number
	if number == "" {
		generated, err := s.seq.Next(ctx, shared.SeqPurchaseOrder)
		if err != nil {
			return PurchaseOrder{}, err
		}
		number = generated
	}
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = s.now()
	}
	po := PurchaseOrder{
		Number:               number,
		VendorID:             input.VendorID,
		Status:               StatusDraft,
		Approval:             approvals.State{Status: approvals.StatusPending},
		PaymentStatus:        PaymentPending,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		ShippingCharges:      input.ShippingCharges,
		OtherCharges:         input.OtherCharges,
		DiscountAmount:       input.DiscountAmount,
		Currency:             defaultString(input.Currency, "INR"),
		Notes:                input.Notes,
		QuotationFile:        input.QuotationFile,
	}
	for _, item := range input.Items {
		po.Items = append(po.Items, LineItem{
			ProductRef:    item.ProductRef,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitOfMeasure: item.UnitOfMeasure,
			UnitPrice:     item.UnitPrice,
			TaxRate:       item.TaxRate,
		})
	}
	po.Recalculate()

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		// Not transactional in the source system; here the vendor stat
		// bump shares the insert's transaction, and the reconciliation
		// job covers any drift from out-of-band writes.
		return tx.BumpVendorStats(ctx, po.VendorID, po.TotalAmount, po.OrderDate)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", input.CreatedBy, po, "purchase order created", shared.SeverityMedium)
	s.bumpCache(ctx)
	return s.repo.Get(ctx, po.ID)
}

// Get fetches an order with items and history.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	if id <= 0 {
		return PurchaseOrder{}, shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Get(ctx, id)
}

// ListFilters narrows List results.
type ListFilters struct {
	Status   string
	VendorID int64
	Search   string
	SortBy   string
	SortDir  string
	Page     int
	Limit    int
}

// List returns order list projections and the unpaged total.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]POListItem, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	return s.repo.List(ctx, filters)
}

// Approve transitions DRAFT -> APPROVED once the approval gate clears.
// Both the status and the pending approval are checked by the same
// conditional write, so concurrent approvals cannot both land. The audit
// event for the decision is recorded by the approval dispatcher.
func (s *Service) Approve(ctx context.Context, id int64, actor approvals.Actor, notes string) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusDraft || !po.Approval.Pending() {
		return PurchaseOrder{}, shared.InvalidStatef("only draft purchase orders pending approval can be approved")
	}
	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.ApproveDraft(ctx, id, actor, at)
		if err != nil {
			return err
		}
		if !ok {
			return shared.InvalidStatef("only draft purchase orders pending approval can be approved")
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{Status: StatusApproved, At: at, UpdatedBy: actor.Name, Notes: notes})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// MarkDelivered transitions APPROVED -> DELIVERED.
func (s *Service) MarkDelivered(ctx context.Context, id int64, updatedBy string, deliveryDate *time.Time, notes string) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusApproved {
		return PurchaseOrder{}, shared.InvalidStatef("only approved purchase orders can be marked as delivered")
	}
	at := s.now()
	deliveredAt := at
	if deliveryDate != nil {
		deliveredAt = *deliveryDate
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.MarkDelivered(ctx, id, deliveredAt)
		if err != nil {
			return err
		}
		if !ok {
			return shared.InvalidStatef("only approved purchase orders can be marked as delivered")
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{Status: StatusDelivered, At: at, UpdatedBy: updatedBy, Notes: notes})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_DELIVER", approvals.Actor{Name: updatedBy}, po, notes, shared.SeverityMedium)
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// MarkInvoiced transitions DELIVERED -> INVOICED, optionally attaching the
// invoice document descriptor.
func (s *Service) MarkInvoiced(ctx context.Context, id int64, updatedBy string, invoiceFile *FileRef, notes string) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusDelivered {
		return PurchaseOrder{}, shared.InvalidStatef("only delivered purchase orders can be marked as invoiced")
	}
	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.MarkInvoiced(ctx, id, invoiceFile)
		if err != nil {
			return err
		}
		if !ok {
			return shared.InvalidStatef("only delivered purchase orders can be marked as invoiced")
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{Status: StatusInvoiced, At: at, UpdatedBy: updatedBy, Notes: notes})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_INVOICE", approvals.Actor{Name: updatedBy}, po, notes, shared.SeverityMedium)
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// MarkPaid transitions INVOICED -> PAID and settles the payment status.
func (s *Service) MarkPaid(ctx context.Context, id int64, updatedBy string, paymentDate *time.Time, notes string) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusInvoiced {
		return PurchaseOrder{}, shared.InvalidStatef("only invoiced purchase orders can be marked as paid")
	}
	at := s.now()
	paidAt := at
	if paymentDate != nil {
		paidAt = *paymentDate
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.MarkPaid(ctx, id, paidAt)
		if err != nil {
			return err
		}
		if !ok {
			return shared.InvalidStatef("only invoiced purchase orders can be marked as paid")
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{Status: StatusPaid, At: at, UpdatedBy: updatedBy, Notes: notes})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_PAY", approvals.Actor{Name: updatedBy}, po, notes, shared.SeverityHigh)
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// Reject declines the approval gate of a DRAFT order. The lifecycle status
// is left at DRAFT; only the approval state moves, which blocks any later
// Approve. A reason is mandatory. The audit event for the decision is
// recorded by the approval dispatcher.
func (s *Service) Reject(ctx context.Context, id int64, actor approvals.Actor, reason, notes string) (PurchaseOrder, error) {
	if strings.TrimSpace(reason) == "" {
		return PurchaseOrder{}, shared.NewValidationError("reason", "rejection reason is required")
	}
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusDraft || !po.Approval.Pending() {
		return PurchaseOrder{}, shared.InvalidStatef("only draft purchase orders pending approval can be rejected")
	}
	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.RejectDraft(ctx, id, actor, reason, at)
		if err != nil {
			return err
		}
		if !ok {
			return shared.InvalidStatef("only draft purchase orders pending approval can be rejected")
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{Status: StatusDraft, At: at, UpdatedBy: actor.Name, Notes: "rejected: " + reason})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// Cancel is the soft-delete path: a terminal override reachable from any
// non-terminal state. Orders are never physically deleted.
func (s *Service) Cancel(ctx context.Context, id int64, updatedBy, notes string) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status.Terminal() {
		return PurchaseOrder{}, shared.InvalidStatef("paid or cancelled purchase orders cannot be cancelled")
	}
	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.Cancel(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return shared.InvalidStatef("paid or cancelled purchase orders cannot be cancelled")
		}
		return tx.AppendHistory(ctx, id, HistoryEntry{Status: StatusCancelled, At: at, UpdatedBy: updatedBy, Notes: notes})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CANCEL", approvals.Actor{Name: updatedBy}, po, notes, shared.SeverityHigh)
	s.bumpCache(ctx)
	return s.repo.Get(ctx, id)
}

// AttachQuotation stores an opaque quotation document descriptor.
func (s *Service) AttachQuotation(ctx context.Context, id int64, file FileRef) (PurchaseOrder, error) {
	if file.Filename == "" {
		return PurchaseOrder{}, shared.NewValidationError("filename", "filename is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetQuotationFile(ctx, id, file)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Approval gate implementation so the generic admin queue can decide POs
// through the same state machine.

func (s *Service) EntityType() approvals.EntityType {
	return approvals.EntityPurchaseOrder
}

func (s *Service) ApprovePending(ctx context.Context, id int64, actor approvals.Actor, notes string) (approvals.Snapshot, error) {
	po, err := s.Approve(ctx, id, actor, notes)
	if err != nil {
		return approvals.Snapshot{}, err
	}
	return toSnapshot(po), nil
}

func (s *Service) RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason, notes string) (approvals.Snapshot, error) {
	po, err := s.Reject(ctx, id, actor, reason, notes)
	if err != nil {
		return approvals.Snapshot{}, err
	}
	return toSnapshot(po), nil
}

func (s *Service) ListPending(ctx context.Context) ([]approvals.Snapshot, error) {
	pending, err := s.repo.ListPendingApproval(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]approvals.Snapshot, 0, len(pending))
	for _, po := range pending {
		snaps = append(snaps, toSnapshot(po))
	}
	return snaps, nil
}

func toSnapshot(po PurchaseOrder) approvals.Snapshot {
	return approvals.Snapshot{
		EntityType:   approvals.EntityPurchaseOrder,
		ID:           po.ID,
		Reference:    po.Number,
		Name:         po.Number,
		DomainStatus: string(po.Status),
		Approval:     po.Approval,
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, actor approvals.Actor, po PurchaseOrder, description string, severity shared.Severity) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditEvent{
		Action:      action,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorRole:   actor.Role,
		TargetType:  string(approvals.EntityPurchaseOrder),
		TargetID:    strconv.FormatInt(po.ID, 10),
		TargetName:  po.Number,
		Description: description,
		Severity:    severity,
	})
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx)
}

func validateCreate(input CreateInput) error {
	ve := &shared.ValidationError{}
	if input.VendorID <= 0 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "vendor_id", Message: "vendor reference is required"})
	}
	if len(input.Items) == 0 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "items", Message: "at least one line item is required"})
	}
	for i, item := range input.Items {
		prefix := "items[" + strconv.Itoa(i) + "]."
		if item.Quantity < 1 {
			ve.Fields = append(ve.Fields, shared.FieldError{Field: prefix + "quantity", Message: "must be at least 1"})
		}
		if item.UnitPrice < 0 {
			ve.Fields = append(ve.Fields, shared.FieldError{Field: prefix + "unit_price", Message: "must not be negative"})
		}
		if item.TaxRate < 0 || item.TaxRate > 100 {
			ve.Fields = append(ve.Fields, shared.FieldError{Field: prefix + "tax_rate", Message: "must be between 0 and 100"})
		}
	}
	if input.ShippingCharges < 0 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "shipping_charges", Message: "must not be negative"})
	}
	if input.OtherCharges < 0 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "other_charges", Message: "must not be negative"})
	}
	if input.DiscountAmount < 0 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "discount_amount", Message: "must not be negative"})
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
