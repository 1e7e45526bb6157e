package approvals

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agriflight/backoffice/internal/shared"
)

// Gate is implemented by each domain that participates in the approval
// workflow. Implementations must enforce the pending precondition with a
// conditional update so two concurrent decisions cannot both succeed.
type Gate interface {
	EntityType() EntityType
	ApprovePending(ctx context.Context, id int64, actor Actor, notes string) (Snapshot, error)
	RejectPending(ctx context.Context, id int64, actor Actor, reason, notes string) (Snapshot, error)
	ListPending(ctx context.Context) ([]Snapshot, error)
}

// AuditPort records audit events after each decision.
type AuditPort interface {
	Record(ctx context.Context, event shared.AuditEvent) error
}

// Service dispatches approval decisions to the registered gates and emits
// audit events. Audit failures never fail the decision.
type Service struct {
	gates map[EntityType]Gate
	audit AuditPort
}

// NewService constructs the approval gate service.
func NewService(audit AuditPort) *Service {
	return &Service{gates: make(map[EntityType]Gate), audit: audit}
}

// Register adds a gate for its entity type. Later registrations replace
// earlier ones.
func (s *Service) Register(gate Gate) {
	if gate == nil {
		return
	}
	s.gates[gate.EntityType()] = gate
}

// Approve transitions the entity's approval status PENDING -> APPROVED,
// stamping the actor and time, and advances the coupled domain status.
func (s *Service) Approve(ctx context.Context, entityType EntityType, id int64, actor Actor, notes string) (Snapshot, error) {
	gate, ok := s.gates[entityType]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
	snap, err := gate.ApprovePending(ctx, id, actor, notes)
	if err != nil {
		return Snapshot{}, err
	}
	s.recordDecision(ctx, "APPROVE", actor, snap, notes, shared.SeverityHigh)
	return snap, nil
}

// Reject transitions the entity's approval status PENDING -> REJECTED.
// The reason is mandatory.
func (s *Service) Reject(ctx context.Context, entityType EntityType, id int64, actor Actor, reason, notes string) (Snapshot, error) {
	if strings.TrimSpace(reason) == "" {
		return Snapshot{}, shared.NewValidationError("reason", "rejection reason is required")
	}
	gate, ok := s.gates[entityType]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
	snap, err := gate.RejectPending(ctx, id, actor, reason, notes)
	if err != nil {
		return Snapshot{}, err
	}
	s.recordDecision(ctx, "REJECT", actor, snap, reason, rejectSeverity(entityType))
	return snap, nil
}

// ListPending returns the admin queue, optionally filtered to one entity
// type. The combined queue is ordered by entity type, then id.
func (s *Service) ListPending(ctx context.Context, entityType EntityType) ([]Snapshot, error) {
	if entityType != "" {
		gate, ok := s.gates[entityType]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
		}
		return gate.ListPending(ctx)
	}
	types := make([]EntityType, 0, len(s.gates))
	for t := range s.gates {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var all []Snapshot
	for _, t := range types {
		snaps, err := s.gates[t].ListPending(ctx)
		if err != nil {
			return nil, err
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
		all = append(all, snaps...)
	}
	return all, nil
}

func (s *Service) recordDecision(ctx context.Context, action string, actor Actor, snap Snapshot, detail string, severity shared.Severity) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditEvent{
		Action:      action + "_" + string(snap.EntityType),
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorRole:   actor.Role,
		TargetType:  string(snap.EntityType),
		TargetID:    strconv.FormatInt(snap.ID, 10),
		TargetName:  snap.Name,
		Description: detail,
		Severity:    severity,
	})
}

// Rejections of financial records are high severity, people records medium.
func rejectSeverity(entityType EntityType) shared.Severity {
	switch entityType {
	case EntityPurchaseOrder, EntityVendor:
		return shared.SeverityHigh
	default:
		return shared.SeverityMedium
	}
}
