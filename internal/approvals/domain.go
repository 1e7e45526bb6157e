package approvals

import (
	"errors"
	"time"
)

// Status gates activation of an approvable entity.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// EntityType enumerates approvable record kinds.
type EntityType string

const (
	EntityEmployee      EntityType = "EMPLOYEE"
	EntityVendor        EntityType = "VENDOR"
	EntityCustomer      EntityType = "CUSTOMER"
	EntityPurchaseOrder EntityType = "PURCHASE_ORDER"
)

// Actor identifies who performed an approval action.
type Actor struct {
	ID   int64
	Name string
	Role string
}

// State carries the approval stamps embedded in every approvable entity.
// Approved and rejected stamps are mutually exclusive: the status moves
// away from PENDING exactly once.
type State struct {
	Status          Status     `json:"approval_status"`
	ApprovedBy      int64      `json:"approved_by,omitempty"`
	ApproverName    string     `json:"approver_name,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      int64      `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Pending reports whether the entity still awaits a decision.
func (s State) Pending() bool {
	return s.Status == StatusPending
}

// Snapshot is the gate's view of an entity after a decision or in the
// pending queue.
type Snapshot struct {
	EntityType   EntityType `json:"entity_type"`
	ID           int64      `json:"id"`
	Reference    string     `json:"reference"`
	Name         string     `json:"name"`
	DomainStatus string     `json:"status"`
	Approval     State      `json:"approval"`
}

var (
	// ErrUnknownEntity indicates no gate is registered for the entity type.
	ErrUnknownEntity = errors.New("approvals: unknown entity type")
)
