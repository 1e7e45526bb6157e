package customers

import (
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
)

// Status values for the customer domain lifecycle. Registration is only
// reached through the approval gate.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusRegistered Status = "REGISTERED"
	StatusActive     Status = "ACTIVE"
	StatusInactive   Status = "INACTIVE"
)

// Customer represents a farm operator buying drone services.
type Customer struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	FarmName  string          `json:"farm_name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Region    string          `json:"region"`
	AcreageHa float64         `json:"acreage_ha"`
	Status    Status          `json:"status"`
	Approval  approvals.State `json:"approval"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
