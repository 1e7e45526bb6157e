package purchasing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

type memoryPORepo struct {
	orders     map[int64]PurchaseOrder
	nextID     int64
	vendorHits int
}

type memoryPOTx struct {
	repo *memoryPORepo
}

func newMemoryPORepo() *memoryPORepo {
	return &memoryPORepo{orders: make(map[int64]PurchaseOrder)}
}

func (r *memoryPORepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryPOTx{repo: r})
}

func (r *memoryPORepo) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	po.Items = append([]LineItem(nil), po.Items...)
	po.History = append([]HistoryEntry(nil), po.History...)
	return po, nil
}

func (r *memoryPORepo) List(ctx context.Context, filters ListFilters) ([]POListItem, int, error) {
	items := []POListItem{}
	for _, po := range r.orders {
		if filters.Status != "" && string(po.Status) != filters.Status {
			continue
		}
		items = append(items, POListItem{ID: po.ID, Number: po.Number, VendorID: po.VendorID, Status: po.Status, TotalAmount: po.TotalAmount, OrderDate: po.OrderDate})
	}
	return items, len(items), nil
}

func (r *memoryPORepo) ListPendingApproval(ctx context.Context) ([]PurchaseOrder, error) {
	var pending []PurchaseOrder
	for _, po := range r.orders {
		if po.Status == StatusDraft && po.Approval.Pending() {
			pending = append(pending, po)
		}
	}
	return pending, nil
}

func (tx *memoryPOTx) Insert(ctx context.Context, po PurchaseOrder) (int64, error) {
	tx.repo.nextID++
	po.ID = tx.repo.nextID
	tx.repo.orders[po.ID] = po
	return po.ID, nil
}

func (tx *memoryPOTx) ApproveDraft(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status != StatusDraft || !po.Approval.Pending() {
		return false, nil
	}
	po.Status = StatusApproved
	po.Approval.Status = approvals.StatusApproved
	po.Approval.ApprovedBy = actor.ID
	po.Approval.ApproverName = actor.Name
	po.Approval.ApprovedAt = &at
	tx.repo.orders[id] = po
	return true, nil
}

func (tx *memoryPOTx) RejectDraft(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status != StatusDraft || !po.Approval.Pending() {
		return false, nil
	}
	po.Approval.Status = approvals.StatusRejected
	po.Approval.RejectedBy = actor.ID
	po.Approval.RejectedAt = &at
	po.Approval.RejectionReason = reason
	tx.repo.orders[id] = po
	return true, nil
}

func (tx *memoryPOTx) MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status != StatusApproved {
		return false, nil
	}
	po.Status = StatusDelivered
	po.ActualDeliveryDate = &deliveredAt
	tx.repo.orders[id] = po
	return true, nil
}

func (tx *memoryPOTx) MarkInvoiced(ctx context.Context, id int64, invoiceFile *FileRef) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status != StatusDelivered {
		return false, nil
	}
	po.Status = StatusInvoiced
	if invoiceFile != nil {
		po.InvoiceFile = invoiceFile
	}
	tx.repo.orders[id] = po
	return true, nil
}

func (tx *memoryPOTx) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status != StatusInvoiced {
		return false, nil
	}
	po.Status = StatusPaid
	po.PaymentStatus = PaymentPaid
	po.PaymentDate = &paidAt
	tx.repo.orders[id] = po
	return true, nil
}

func (tx *memoryPOTx) Cancel(ctx context.Context, id int64) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status.Terminal() {
		return false, nil
	}
	po.Status = StatusCancelled
	tx.repo.orders[id] = po
	return true, nil
}

func (tx *memoryPOTx) AppendHistory(ctx context.Context, id int64, entry HistoryEntry) error {
	po := tx.repo.orders[id]
	po.History = append(po.History, entry)
	tx.repo.orders[id] = po
	return nil
}

func (tx *memoryPOTx) BumpVendorStats(ctx context.Context, vendorID int64, amount float64, orderDate time.Time) error {
	tx.repo.vendorHits++
	return nil
}

func (tx *memoryPOTx) SetQuotationFile(ctx context.Context, id int64, file FileRef) error {
	po, ok := tx.repo.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	po.QuotationFile = &file
	tx.repo.orders[id] = po
	return nil
}

func (tx *memoryPOTx) SetInvoiceNumberIfAbsent(ctx context.Context, id int64, number string) (string, error) {
	po, ok := tx.repo.orders[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	if po.InvoiceNumber == "" {
		po.InvoiceNumber = number
		tx.repo.orders[id] = po
	}
	return po.InvoiceNumber, nil
}

type stubSequences struct {
	counters map[shared.SequenceKind]int64
}

func (s *stubSequences) Next(ctx context.Context, kind shared.SequenceKind) (string, error) {
	if s.counters == nil {
		s.counters = make(map[shared.SequenceKind]int64)
	}
	s.counters[kind]++
	return fmt.Sprintf("%s-%04d", kind, s.counters[kind]), nil
}

type stubAudit struct {
	events []shared.AuditEvent
}

func (s *stubAudit) Record(ctx context.Context, event shared.AuditEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubCache struct {
	bumps int
}

func (s *stubCache) Invalidate(ctx context.Context) error {
	s.bumps++
	return nil
}

func newTestService() (*Service, *memoryPORepo, *stubAudit, *stubCache) {
	repo := newMemoryPORepo()
	audit := &stubAudit{}
	cache := &stubCache{}
	svc := NewService(repo, &stubSequences{}, audit, cache)
	return svc, repo, audit, cache
}

func sampleInput() CreateInput {
	return CreateInput{
		VendorID: 1,
		Items: []LineItemInput{
			{Description: "Agri drone frame kit", Quantity: 10, UnitPrice: 100, TaxRate: 10},
			{Description: "Spray nozzle set", Quantity: 5, UnitPrice: 50.555, TaxRate: 18},
		},
		ShippingCharges: 40,
		DiscountAmount:  15,
		CreatedBy:       approvals.Actor{ID: 7, Name: "Asha"},
	}
}

func TestCreateDerivesTotals(t *testing.T) {
	svc, repo, _, cache := newTestService()
	ctx := context.Background()

	po, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	require.NotZero(t, po.ID)
	require.Equal(t, StatusDraft, po.Status)
	require.True(t, po.Approval.Pending())
	require.NotEmpty(t, po.Number)
	require.Empty(t, po.History)

	// 10*100=1000 and 5*50.555=252.78 rounded per line.
	require.InDelta(t, 1252.78, po.Subtotal, 0.001)
	// 1000*10% + 252.78*18% = 100 + 45.50
	require.InDelta(t, 145.50, po.TaxAmount, 0.001)
	require.InDelta(t, po.Subtotal+po.TaxAmount+40-15, po.TotalAmount, 0.001)
	require.Equal(t, "INR", po.Currency)

	require.Equal(t, 1, repo.vendorHits)
	require.Equal(t, 1, cache.bumps)
}

func TestCreateRejectsBadItems(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{VendorID: 1})
	ve, ok := shared.AsValidationError(err)
	require.True(t, ok)
	require.Equal(t, "items", ve.Fields[0].Field)

	input := sampleInput()
	input.Items[0].Quantity = 0
	input.Items[1].TaxRate = 120
	_, err = svc.Create(ctx, input)
	ve, ok = shared.AsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Fields, 2)
}

func TestFullLifecycle(t *testing.T) {
	svc, _, audit, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi", Role: "ADMIN"}

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	po, err := svc.Approve(ctx, created.ID, admin, "looks good")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, po.Status)
	require.Equal(t, approvals.StatusApproved, po.Approval.Status)
	require.Equal(t, "Ravi", po.Approval.ApproverName)

	po, err = svc.MarkDelivered(ctx, created.ID, "stores", nil, "all crates intact")
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, po.Status)
	require.NotNil(t, po.ActualDeliveryDate)

	po, err = svc.MarkInvoiced(ctx, created.ID, "accounts", &FileRef{Filename: "inv.pdf"}, "")
	require.NoError(t, err)
	require.Equal(t, StatusInvoiced, po.Status)
	require.NotNil(t, po.InvoiceFile)

	po, err = svc.MarkPaid(ctx, created.ID, "accounts", nil, "NEFT ref 991")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, po.Status)
	require.Equal(t, PaymentPaid, po.PaymentStatus)
	require.NotNil(t, po.PaymentDate)

	// One history entry per accepted transition, none for the initial draft.
	require.Len(t, po.History, 4)
	require.Equal(t, StatusApproved, po.History[0].Status)
	require.Equal(t, StatusPaid, po.History[3].Status)

	actions := make([]string, 0, len(audit.events))
	for _, e := range audit.events {
		actions = append(actions, e.Action)
	}
	require.Equal(t, []string{"PO_CREATE", "PO_DELIVER", "PO_INVOICE", "PO_PAY"}, actions)
}

func TestTransitionsEnforceOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = svc.MarkDelivered(ctx, created.ID, "stores", nil, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.ErrorContains(t, err, "only approved purchase orders can be marked as delivered")

	_, err = svc.MarkInvoiced(ctx, created.ID, "accounts", nil, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.MarkPaid(ctx, created.ID, "accounts", nil, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Approve(ctx, created.ID, admin, "")
	require.NoError(t, err)

	// Approving twice must fail, the gate is already closed.
	_, err = svc.Approve(ctx, created.ID, admin, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// Skipping delivered is not allowed either.
	_, err = svc.MarkPaid(ctx, created.ID, "accounts", nil, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRejectRequiresReasonAndBlocksApproval(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, created.ID, admin, "   ", "")
	ve, ok := shared.AsValidationError(err)
	require.True(t, ok)
	require.Equal(t, "reason", ve.Fields[0].Field)

	po, err := svc.Reject(ctx, created.ID, admin, "duplicate of PO-2026-0003", "")
	require.NoError(t, err)
	require.Equal(t, StatusDraft, po.Status)
	require.Equal(t, approvals.StatusRejected, po.Approval.Status)
	require.Equal(t, "duplicate of PO-2026-0003", po.Approval.RejectionReason)
	require.Len(t, po.History, 1)

	_, err = svc.Approve(ctx, created.ID, admin, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	draft, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	po, err := svc.Cancel(ctx, draft.ID, "Asha", "vendor folded")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, po.Status)

	_, err = svc.Cancel(ctx, draft.ID, "Asha", "again")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	paid, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, paid.ID, admin, "")
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, paid.ID, "stores", nil, "")
	require.NoError(t, err)
	_, err = svc.MarkInvoiced(ctx, paid.ID, "accounts", nil, "")
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, paid.ID, "accounts", nil, "")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, paid.ID, "Asha", "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.ErrorContains(t, err, "paid or cancelled purchase orders cannot be cancelled")
}

func TestApprovalGateSnapshots(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	require.Equal(t, approvals.EntityPurchaseOrder, svc.EntityType())

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, created.Number, pending[0].Reference)

	snap, err := svc.ApprovePending(ctx, created.ID, admin, "")
	require.NoError(t, err)
	require.Equal(t, string(StatusApproved), snap.DomainStatus)

	pending, err = svc.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestGateDecisionAuditedOnce(t *testing.T) {
	svc, _, audit, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	gate := approvals.NewService(audit)
	gate.Register(svc)

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = gate.Approve(ctx, approvals.EntityPurchaseOrder, created.ID, admin, "within budget")
	require.NoError(t, err)

	actions := make([]string, 0, len(audit.events))
	for _, e := range audit.events {
		actions = append(actions, e.Action)
	}
	require.Equal(t, []string{"PO_CREATE", "APPROVE_PURCHASE_ORDER"}, actions)

	rejected, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)
	_, err = gate.Reject(ctx, approvals.EntityPurchaseOrder, rejected.ID, admin, "over budget", "")
	require.NoError(t, err)
	require.Equal(t, "REJECT_PURCHASE_ORDER", audit.events[len(audit.events)-1].Action)
	require.Len(t, audit.events, 4)
}

func TestInvoiceDocumentAssignsNumberOnce(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	// The invoice view only exists from INVOICED onwards.
	_, err = svc.Invoice(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Approve(ctx, created.ID, admin, "")
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, created.ID, "stores", nil, "")
	require.NoError(t, err)
	_, err = svc.MarkInvoiced(ctx, created.ID, "accounts", nil, "")
	require.NoError(t, err)

	first, err := svc.Invoice(ctx, created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first.InvoiceNumber)

	second, err := svc.Invoice(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	require.Equal(t, created.Number, first.OrderNumber)
}

func TestReceiptOnlyForPaidOrders(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	admin := approvals.Actor{ID: 2, Name: "Ravi"}

	created, err := svc.Create(ctx, sampleInput())
	require.NoError(t, err)

	_, err = svc.Receipt(ctx, created.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	bill, err := svc.Bill(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Number, bill.OrderNumber)
	require.Len(t, bill.Lines, 2)

	_, err = svc.Approve(ctx, created.ID, admin, "")
	require.NoError(t, err)
	_, err = svc.MarkDelivered(ctx, created.ID, "stores", nil, "")
	require.NoError(t, err)
	_, err = svc.MarkInvoiced(ctx, created.ID, "accounts", nil, "")
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, created.ID, "accounts", nil, "")
	require.NoError(t, err)

	receipt, err := svc.Receipt(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, receipt.PaymentDate)
	require.Contains(t, receipt.AmountPaid, "INR")
}
