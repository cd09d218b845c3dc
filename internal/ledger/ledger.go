// Package ledger defines the capacity ledger: per inventory-unit counters
// for total capacity, reserved tickets and check-ins. All counter mutations
// in the system go through a Ledger; no other component writes them.
package ledger

import (
	"context"
	"errors"

	"ticketgate/internal/models"
)

// ErrCapacityExceeded is returned by Reserve when the request does not fit.
// It is an expected outcome (routes to the waitlist), not a fault.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrUnitNotFound is returned when the inventory unit does not exist.
var ErrUnitNotFound = errors.New("inventory unit not found")

// Counters is a read-only snapshot of a unit's counters for dashboards.
type Counters struct {
	Capacity  int `json:"capacity"`
	Reserved  int `json:"reserved"`
	CheckedIn int `json:"checked_in"`
}

// Available returns capacity minus reserved; never negative for a snapshot
// taken through a Ledger.
func (c Counters) Available() int {
	return c.Capacity - c.Reserved
}

// Ledger tracks capacity per inventory unit. Every method is a single atomic
// read-modify-write: Reserve checks reserved+qty <= capacity and increments
// in the same step, or fails without side effects.
type Ledger interface {
	Reserve(ctx context.Context, unit models.UnitRef, qty int) error
	Release(ctx context.Context, unit models.UnitRef, qty int) error
	RecordCheckIn(ctx context.Context, unit models.UnitRef) error
	Counters(ctx context.Context, unit models.UnitRef) (Counters, error)
}
