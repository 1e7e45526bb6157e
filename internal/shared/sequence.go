package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceKind names a human-readable identifier series.
type SequenceKind string

const (
	SeqPurchaseOrder SequenceKind = "PO"
	SeqEmployee      SequenceKind = "EMP"
	SeqProcurement   SequenceKind = "PROC"
	SeqInvoice       SequenceKind = "INV"
)

// Sequences issues sequential display identifiers from a counters table.
// The increment is a single atomic UPDATE so concurrent creations never
// observe the same value.
type Sequences struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewSequences constructs the generator.
func NewSequences(pool *pgxpool.Pool) *Sequences {
	return &Sequences{pool: pool, now: time.Now}
}

// Next returns the next formatted identifier for the kind, e.g.
// PO-2026-0001, EMP0001, PROC-2026-0001. Counters for dated kinds are
// scoped per year.
func (s *Sequences) Next(ctx context.Context, kind SequenceKind) (string, error) {
	if s == nil {
		return "", errors.New("sequence generator not initialised")
	}
	year := s.now().Year()
	scope := string(kind)
	if kind != SeqEmployee {
		scope = fmt.Sprintf("%s:%d", kind, year)
	}
	var value int64
	err := s.pool.QueryRow(ctx, `INSERT INTO sequence_counters (scope, value)
VALUES ($1, 1)
ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
RETURNING value`, scope).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("shared: next sequence %s: %w", kind, err)
	}
	return FormatSequence(kind, year, value), nil
}

// FormatSequence renders an identifier for a kind, year and counter value.
func FormatSequence(kind SequenceKind, year int, value int64) string {
	switch kind {
	case SeqEmployee:
		return fmt.Sprintf("EMP%04d", value)
	default:
		return fmt.Sprintf("%s-%d-%04d", kind, year, value)
	}
}
