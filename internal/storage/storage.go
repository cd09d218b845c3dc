// Package storage defines the persistence boundary for events, cohorts and
// bookings, plus the sentinel errors shared by its backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ticketgate/internal/models"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrCohortNotFound  = errors.New("cohort not found")
	ErrBookingNotFound = errors.New("booking not found")
)

// EventStore persists events and their cohorts.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event, cohorts []models.Cohort) error
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListCohorts(ctx context.Context, eventID uuid.UUID) ([]models.Cohort, error)
}

// BookingStore persists bookings. Mutating methods are atomic
// read-modify-writes: a conditional update either applies in one step or
// reports that it did not, so racing callers cannot interleave.
type BookingStore interface {
	// SaveBooking inserts a booking. Saving an ID that already exists is a
	// no-op, which makes client retries of a registration attempt safe.
	SaveBooking(ctx context.Context, b *models.Booking) error

	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)

	// TransitionBooking moves a booking from one status to another in a
	// single conditional update. It returns false, with no side effects,
	// when the booking was no longer in the from status.
	TransitionBooking(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error)

	// ApplyCheckIn flips checked_in false→true together with the audit
	// fields, in one conditional update guarded on the flag being false and
	// the booking being confirmed. Exactly one of any set of racing callers
	// observes applied=true.
	ApplyCheckIn(ctx context.Context, id uuid.UUID, at time.Time, by string, method models.CheckInMethod) (bool, error)

	// SetQRCode stores the ticket code rendered for a booking. Written once,
	// at confirmation time.
	SetQRCode(ctx context.Context, id uuid.UUID, code string) error

	ListBookingsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error)

	// ListWaitlisted returns waitlisted bookings for a unit, oldest first,
	// for the promotion sweep.
	ListWaitlisted(ctx context.Context, unit models.UnitRef, limit int) ([]models.Booking, error)

	// ListWaitlistedUnits returns the units that currently have waitlisted
	// bookings, so the sweep knows where to attempt promotion.
	ListWaitlistedUnits(ctx context.Context) ([]models.UnitRef, error)
}
