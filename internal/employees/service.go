package employees

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/agriflight/backoffice/internal/approvals"
	"github.com/agriflight/backoffice/internal/shared"
)

// SequencePort issues employee codes.
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

type CreateInput struct {
	Name        string
	Email       string
	Phone       string
	Designation string
	Department  string
	JoinDate    time.Time
	Password    string
}

// Create onboards an employee in DRAFT, pending admin approval. The initial
// credential is stored as a bcrypt hash.
func (s *Service) Create(ctx context.Context, input CreateInput) (Employee, error) {
	if err := validateInput(input); err != nil {
		return Employee{}, err
	}
	code, err := s.seq.Next(ctx, shared.SeqEmployee)
	if err != nil {
		return Employee{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Employee{}, err
	}
	joinDate := input.JoinDate
	if joinDate.IsZero() {
		joinDate = s.now()
	}
	employee := Employee{
		Code:         code,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Designation:  input.Designation,
		Department:   input.Department,
		JoinDate:     joinDate,
		Status:       StatusDraft,
		Approval:     approvals.State{Status: approvals.StatusPending},
		PasswordHash: string(hash),
	}
	return s.repo.Create(ctx, employee)
}

func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	if id <= 0 {
		return Employee{}, shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidationError("id", "malformed identifier")
	}
	return s.repo.Deactivate(ctx, id)
}

// Approval gate implementation.

func (s *Service) EntityType() approvals.EntityType {
	return approvals.EntityEmployee
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
	for _, e := range pending {
		snaps = append(snaps, toSnapshot(e))
	}
	return snaps, nil
}

func (s *Service) notPending(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return shared.InvalidStatef("employee is not pending approval")
}

func (s *Service) snapshot(ctx context.Context, id int64) (approvals.Snapshot, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return approvals.Snapshot{}, err
	}
	return toSnapshot(e), nil
}

func toSnapshot(e Employee) approvals.Snapshot {
	return approvals.Snapshot{
		EntityType:   approvals.EntityEmployee,
		ID:           e.ID,
		Reference:    e.Code,
		Name:         e.Name,
		DomainStatus: string(e.Status),
		Approval:     e.Approval,
	}
}

func validateInput(input CreateInput) error {
	ve := &shared.ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "name", Message: "employee name is required"})
	}
	if strings.TrimSpace(input.Email) == "" {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "email", Message: "email is required"})
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "email", Message: "malformed email address"})
	}
	if len(input.Password) < 8 {
		ve.Fields = append(ve.Fields, shared.FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}
