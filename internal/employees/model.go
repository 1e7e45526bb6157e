package employees

import (
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Employee represents a staff member onboarded through the approval gate.
type Employee struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Designation string          `json:"designation"`
	Department  string          `json:"department"`
	JoinDate    time.Time       `json:"join_date"`
	Status      Status          `json:"status"`
	Approval    approvals.State `json:"approval"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Initial credential hash set during onboarding, never serialised.
	PasswordHash string `json:"-"`
}
