package vendors

import (
	"context"
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

// SequencePort issues vendor procurement codes.
type SequencePort interface {
	Next(ctx context.Context, kind shared.SequenceKind) (string, error)
}

type Service struct {
	repo Repository
	seq  SequencePort
	now  func() time.Time
}

func NewService(repo Repository, seq SequencePort) *Service {
	return &Service{repo: repo, seq: seq, now: time.Now}
}

// CreateInput carries vendor registration data.
type CreateInput struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	Category      string
}

// Create registers a vendor in DRAFT, pending admin approval.
func (s *Service) Create(ctx context.Context, input CreateInput) (Vendor, error) {
	if err := validateInput(input); err != nil {
		return Vendor{}, err
	}
	code, err := s.seq.Next(ctx, shared.SeqProcurement)
	if err != nil {
		return Vendor{}, err
	}
	vendor := Vendor{
		Code:          code,
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		Category:      input.Category,
		Status:        StatusDraft,
		Approval:      approvals.State{Status: approvals.StatusPending},
	}
	return s.repo.Create(ctx, vendor)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, shared.NewValidationError("id", "malformed identifier")
	}
	if err := validateInput(input); err != nil {
		return Vendor{}, err
	}
	if err := s.repo.Update(ctx, id, Vendor{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		Category:      input.Category,
	}); err != nil {
		return Vendor{}, err
	}
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes the vendor; records are never physically removed.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Deactivate(ctx, id)
}

// RecomputeStats is exposed for the reconciliation job.
func (s *Service) RecomputeStats(ctx context.Context, id int64) error {
	return s.repo.RecomputeStats(ctx, id)
}

// Approval gate implementation.

func (s *Service) EntityType() approvals.EntityType {
	return approvals.EntityVendor
}

// ApprovePending advances DRAFT -> ACTIVE once the pending gate clears.
func (s *Service) ApprovePending(ctx context.Context, id int64, actor approvals.Actor, notes string) (approvals.Snapshot, error) {
	ok, err := s.repo.ApprovePending(ctx, id, actor, s.now())
	if err != nil {
		return approvals.Snapshot{}, err
	}
	if !ok {
		return approvals.Snapshot{}, s.notPending(ctx, id)
	}
	return s.snapshot(ctx, id)
}

func (s *Service) RejectPending(ctx context.Context, id int64, actor approvals.Actor, reason, notes string) (approvals.Snapshot, error) {
	ok, err := s.repo.RejectPending(ctx, id, actor, reason, s.now())
	if err != nil {
		return approvals.Snapshot{}, err
	}
	if !ok {
		return approvals.Snapshot{}, s.notPending(ctx, id)
	}
	return s.snapshot(ctx, id)
}

func (s *Service) ListPending(ctx context.Context) ([]approvals.Snapshot, error) {
	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]approvals.Snapshot, 0, len(pending))
	for _, v := range pending {
		snaps = append(snaps, toSnapshot(v))
	}
	return snaps, nil
}

// notPending distinguishes a missing row from a decided one.
func (s *Service) notPending(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return shared.InvalidStatef("vendor is not pending approval")
}

func (s *Service) snapshot(ctx context.Context, id int64) (approvals.Snapshot, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return approvals.Snapshot{}, err
	}
	return toSnapshot(v), nil
}

func toSnapshot(v Vendor) approvals.Snapshot {
	return approvals.Snapshot{
		EntityType:   approvals.EntityVendor,
		ID:           v.ID,
		Reference:    v.Code,
		Name:         v.Name,
		DomainStatus: string(v.Status),
		Approval:     v.Approval,
	}
}
