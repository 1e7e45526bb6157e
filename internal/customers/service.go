package customers

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateInput struct {
	Name      string
	FarmName  string
	Email     string
	Phone     string
	Region    string
	AcreageHa float64
}

// Create registers a customer in DRAFT, pending admin approval.
func (s *Service) Create(ctx context.Context, input CreateInput) (Customer, error) {
	if err := validateInput(input); err != nil {
		return Customer{}, err
	}
	customer := Customer{
		Name:      input.Name,
		FarmName:  input.FarmName,
		Email:     input.Email,
		Phone:     input.Phone,
		Region:    input.Region,
		AcreageHa: input.AcreageHa,
		Status:    StatusDraft,
		Approval:  approvals.State{Status: approvals.StatusPending},
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Update(ctx context.Context, id int64, input CreateInput) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.NewValidationError("id", "malformed identifier")
	}
	if err := validateInput(input); err != nil {
		return Customer{}, err
	}
	if err := s.repo.Update(ctx, id, Customer{
		Name:      input.Name,
		FarmName:  input.FarmName,
		Email:     input.Email,
		Phone:     input.Phone,
		Region:    input.Region,
		AcreageHa: input.AcreageHa,
	}); err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Deactivate(ctx, id)
}

// Approval gate implementation.

func (s *Service) EntityType() approvals.EntityType {
	return approvals.EntityCustomer
}

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
	for _, c := range pending {
		snaps = append(snaps, toSnapshot(c))
	}
	return snaps, nil
}

func (s *Service) notPending(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return shared.InvalidStatef("customer is not pending approval")
}

func (s *Service) snapshot(ctx context.Context, id int64) (approvals.Snapshot, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return approvals.Snapshot{}, err
	}
	return toSnapshot(c), nil
}

func toSnapshot(c Customer) approvals.Snapshot {
	return approvals.Snapshot{
		EntityType:   approvals.EntityCustomer,
		ID:           c.ID,
		Reference:    c.Email,
		Name:         c.Name,
		DomainStatus: string(c.Status),
		Approval:     c.Approval,
	}
}

func validateInput(input CreateInput) error {
	ve := &shared.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "name", Message: "customer name is required"})
	}
	if strings.TrimSpace(input.Email) == "" {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "email", Message: "malformed email address"})
	}
	if input.AcreageHa < 0 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "acreage_ha", Message: "must not be negative"})
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}
