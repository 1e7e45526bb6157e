package vendors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

type memoryVendorRepo struct {
	vendors    map[int64]Vendor
	nextID     int64
	recomputed []int64
}

func newMemoryVendorRepo() *memoryVendorRepo {
	return &memoryVendorRepo{vendors: make(map[int64]Vendor)}
}

func (r *memoryVendorRepo) Create(ctx context.Context, v Vendor) (Vendor, error) {
	for _, existing := range r.vendors {
		if existing.Email == v.Email {
			return Vendor{}, shared.Duplicatef("vendor with this email or code already exists")
		}
	}
	r.nextID++
	v.ID = r.nextID
	r.vendors[v.ID] = v
	return v, nil
}

func (r *memoryVendorRepo) Get(ctx context.Context, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (r *memoryVendorRepo) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	result := []Vendor{}
	for _, v := range r.vendors {
		if filters.Status != "" && string(v.Status) != filters.Status {
			continue
		}
		result = append(result, v)
	}
	return result, len(result), nil
}

func (r *memoryVendorRepo) Update(ctx context.Context, id int64, v Vendor) error {
	existing, ok := r.vendors[id]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Name = v.Name
	existing.ContactPerson = v.ContactPerson
	existing.Email = v.Email
	existing.Phone = v.Phone
	existing.Address = v.Address
	existing.Category = v.Category
	r.vendors[id] = existing
	return nil
}

func (r *memoryVendorRepo) Deactivate(ctx context.Context, id int64) error {
	v, ok := r.vendors[id]
	if !ok {
		return shared.ErrNotFound
	}
	v.Status = StatusInactive
	r.vendors[id] = v
	return nil
}

func (r *memoryVendorRepo) ApprovePending(ctx context.Context, id int64, actor approvals.Actor, at time.Time) (bool, error) {
	v, ok := r.vendors[id]
	if !ok || !v.Approval.Pending() {
		return false, nil
	}
	v.Approval.Status = approvals.StatusApproved
	v.Approval.ApprovedBy = actor.ID
	v.Approval.ApproverName = actor.Name
	v.Approval.ApprovedAt = &at
	v.Status = StatusActive
	r.vendors[id] = v
	return true, nil
}

func (r *memoryVendorRepo) RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason string, at time.Time) (bool, error) {
	v, ok := r.vendors[id]
	if !ok || !v.Approval.Pending() {
		return false, nil
	}
	v.Approval.Status = approvals.StatusRejected
	v.Approval.RejectedBy = actor.ID
	v.Approval.RejectedAt = &at
	v.Approval.RejectionReason = reason
	r.vendors[id] = v
	return true, nil
}

func (r *memoryVendorRepo) ListPending(ctx context.Context) ([]Vendor, error) {
	var pending []Vendor
	for _, v := range r.vendors {
		if v.Approval.Pending() {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

func (r *memoryVendorRepo) RecomputeStats(ctx context.Context, id int64) error {
	r.recomputed = append(r.recomputed, id)
	return nil
}

func (r *memoryVendorRepo) IDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(r.vendors))
	for id := range r.vendors {
		ids = append(ids, id)
	}
	return ids, nil
}

type stubSeq struct {
	n int64
}

func (s *stubSeq) Next(ctx context.Context, kind shared.SequenceKind) (string, error) {
	s.n++
	return fmt.Sprintf("%s-%04d", kind, s.n), nil
}

func TestCreateStartsDraftPending(t *testing.T) {
	repo := newMemoryVendorRepo()
	svc := NewService(repo, &stubSeq{})

	v, err := svc.Create(context.Background(), CreateInput{
		Name:     "AgroParts Supply",
		Email:    "sales@agroparts.example",
		Category: "spares",
	})
	require.NoError(t, err)
	require.NotZero(t, v.ID)
	require.Equal(t, StatusDraft, v.Status)
	require.True(t, v.Approval.Pending())
	require.Equal(t, "PROC-0001", v.Code)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryVendorRepo(), &stubSeq{})

	_, err := svc.Create(context.Background(), CreateInput{Name: "", Email: "not-an-email"})
	ve, ok := shared.AsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Fields, 2)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryVendorRepo(), &stubSeq{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "A", Email: "dup@agro.example"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "B", Email: "dup@agro.example"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestApproveActivatesVendor(t *testing.T) {
	repo := newMemoryVendorRepo()
	svc := NewService(repo, &stubSeq{})
	ctx := context.Background()
	admin := approvals.Actor{ID: 9, Name: "Meera", Role: "ADMIN"}

	v, err := svc.Create(ctx, CreateInput{Name: "AgroParts", Email: "a@agro.example"})
	require.NoError(t, err)

	snap, err := svc.ApprovePending(ctx, v.ID, admin, "")
	require.NoError(t, err)
	require.Equal(t, string(StatusActive), snap.DomainStatus)
	require.Equal(t, approvals.StatusApproved, snap.Approval.Status)
	require.Equal(t, "Meera", snap.Approval.ApproverName)

	// A second decision must fail: the gate is single-shot.
	_, err = svc.ApprovePending(ctx, v.ID, admin, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = svc.RejectPending(ctx, v.ID, admin, "late", "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestRejectKeepsDraftStatus(t *testing.T) {
	repo := newMemoryVendorRepo()
	svc := NewService(repo, &stubSeq{})
	ctx := context.Background()
	admin := approvals.Actor{ID: 9, Name: "Meera"}

	v, err := svc.Create(ctx, CreateInput{Name: "AgroParts", Email: "a@agro.example"})
	require.NoError(t, err)

	snap, err := svc.RejectPending(ctx, v.ID, admin, "incomplete documents", "")
	require.NoError(t, err)
	require.Equal(t, string(StatusDraft), snap.DomainStatus)
	require.Equal(t, "incomplete documents", snap.Approval.RejectionReason)
}

func TestApproveMissingVendor(t *testing.T) {
	svc := NewService(newMemoryVendorRepo(), &stubSeq{})

	_, err := svc.ApprovePending(context.Background(), 42, approvals.Actor{ID: 1}, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateIsSoftDelete(t *testing.T) {
	repo := newMemoryVendorRepo()
	svc := NewService(repo, &stubSeq{})
	ctx := context.Background()

	v, err := svc.Create(ctx, CreateInput{Name: "AgroParts", Email: "a@agro.example"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, v.ID))

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, got.Status)
}

func TestListPendingSnapshots(t *testing.T) {
	repo := newMemoryVendorRepo()
	svc := NewService(repo, &stubSeq{})
	ctx := context.Background()
	admin := approvals.Actor{ID: 9, Name: "Meera"}

	first, err := svc.Create(ctx, CreateInput{Name: "One", Email: "one@agro.example"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "Two", Email: "two@agro.example"})
	require.NoError(t, err)

	_, err = svc.ApprovePending(ctx, first.ID, admin, "")
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "Two", pending[0].Name)
}
