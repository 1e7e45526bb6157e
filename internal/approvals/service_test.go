package approvals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agriflight/backoffice/internal/shared"
)

type fakeGate struct {
	entity   EntityType
	pending  map[int64]Snapshot
	approved []int64
	rejected []int64
}

func newFakeGate(entity EntityType, ids ...int64) *fakeGate {
	g := &fakeGate{entity: entity, pending: make(map[int64]Snapshot)}
	for _, id := range ids {
		g.pending[id] = Snapshot{
			EntityType: entity,
			ID:         id,
			Reference:  string(entity),
			Name:       "pending record",
			Approval:   State{Status: StatusPending},
		}
	}
	return g
}

func (g *fakeGate) EntityType() EntityType { return g.entity }

func (g *fakeGate) ApprovePending(ctx context.Context, id int64, actor Actor, notes string) (Snapshot, error) {
	snap, ok := g.pending[id]
	if !ok {
		return Snapshot{}, shared.ErrNotFound
	}
	delete(g.pending, id)
	snap.Approval.Status = StatusApproved
	snap.Approval.ApprovedBy = actor.ID
	g.approved = append(g.approved, id)
	return snap, nil
}

func (g *fakeGate) RejectPending(ctx context.Context, id int64, actor Actor, reason, notes string) (Snapshot, error) {
	snap, ok := g.pending[id]
	if !ok {
		return Snapshot{}, shared.ErrNotFound
	}
	delete(g.pending, id)
	snap.Approval.Status = StatusRejected
	snap.Approval.RejectionReason = reason
	g.rejected = append(g.rejected, id)
	return snap, nil
}

func (g *fakeGate) ListPending(ctx context.Context) ([]Snapshot, error) {
	snaps := make([]Snapshot, 0, len(g.pending))
	for _, snap := range g.pending {
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

type recordingAudit struct {
	events []shared.AuditEvent
}

func (a *recordingAudit) Record(ctx context.Context, event shared.AuditEvent) error {
	a.events = append(a.events, event)
	return nil
}

func TestApproveDispatchesToRegisteredGate(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(audit)
	vendors := newFakeGate(EntityVendor, 7)
	svc.Register(vendors)

	snap, err := svc.Approve(context.Background(), EntityVendor, 7, Actor{ID: 1, Name: "Meera", Role: "ADMIN"}, "looks good")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, snap.Approval.Status)
	require.Equal(t, []int64{7}, vendors.approved)

	require.Len(t, audit.events, 1)
	require.Equal(t, "APPROVE_VENDOR", audit.events[0].Action)
	require.Equal(t, shared.SeverityHigh, audit.events[0].Severity)
	require.Equal(t, "7", audit.events[0].TargetID)
}

func TestApproveUnknownEntity(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.Approve(context.Background(), EntityCustomer, 1, Actor{ID: 1}, "")
	require.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRejectRequiresReason(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(audit)
	gate := newFakeGate(EntityEmployee, 3)
	svc.Register(gate)

	_, err := svc.Reject(context.Background(), EntityEmployee, 3, Actor{ID: 1}, "  ", "")
	ve, ok := shared.AsValidationError(err)
	require.True(t, ok)
	require.Equal(t, "reason", ve.Fields[0].Field)
	require.Empty(t, gate.rejected)
	require.Empty(t, audit.events)
}

func TestRejectSeverityByEntity(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(audit)
	svc.Register(newFakeGate(EntityPurchaseOrder, 1))
	svc.Register(newFakeGate(EntityEmployee, 2))
	actor := Actor{ID: 1, Name: "Meera"}

	_, err := svc.Reject(context.Background(), EntityPurchaseOrder, 1, actor, "over budget", "")
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), EntityEmployee, 2, actor, "incomplete papers", "")
	require.NoError(t, err)

	require.Len(t, audit.events, 2)
	require.Equal(t, shared.SeverityHigh, audit.events[0].Severity)
	require.Equal(t, shared.SeverityMedium, audit.events[1].Severity)
	require.Equal(t, "over budget", audit.events[0].Description)
}

func TestListPendingAcrossGates(t *testing.T) {
	svc := NewService(nil)
	svc.Register(newFakeGate(EntityVendor, 1, 2))
	svc.Register(newFakeGate(EntityCustomer, 3))

	all, err := svc.ListPending(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	// The combined queue has a stable order: entity type, then id.
	types := make([]EntityType, 0, len(all))
	ids := make([]int64, 0, len(all))
	for _, snap := range all {
		types = append(types, snap.EntityType)
		ids = append(ids, snap.ID)
	}
	require.Equal(t, []EntityType{EntityCustomer, EntityVendor, EntityVendor}, types)
	require.Equal(t, []int64{3, 1, 2}, ids)

	again, err := svc.ListPending(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, all, again)

	vendorsOnly, err := svc.ListPending(context.Background(), EntityVendor)
	require.NoError(t, err)
	require.Len(t, vendorsOnly, 2)

	_, err = svc.ListPending(context.Background(), EntityPurchaseOrder)
	require.ErrorIs(t, err, ErrUnknownEntity)
}
