package vendors

import (
	"time"

	"github.com/agriflight/backoffice/internal/approvals"
)

// Status values for the vendor domain lifecycle.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Vendor represents a supplier of drone components or services.
type Vendor struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	ContactPerson string          `json:"contact_person"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Category      string          `json:"category"`
	Status        Status          `json:"status"`
	Approval      approvals.State `json:"approval"`

	// Aggregate order statistics, maintained on purchase order creation
	// and recomputed by the reconciliation job.
	TotalOrders     int64      `json:"total_orders"`
	TotalOrderValue float64    `json:"total_order_value"`
	LastOrderDate   *time.Time `json:"last_order_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
