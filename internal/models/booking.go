package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is a closed set of booking lifecycle states.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusWaitlisted BookingStatus = "waitlisted"
	StatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWaitlisted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status graph allows moving to next:
// pending → confirmed | waitlisted, waitlisted → confirmed | cancelled,
// confirmed → cancelled. Terminal: cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusWaitlisted
	case StatusWaitlisted:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	case StatusCancelled:
		return false
	}
	return false
}

// CheckInMethod records how a booking was checked in at the venue.
type CheckInMethod string

const (
	MethodQR     CheckInMethod = "qr"
	MethodManual CheckInMethod = "manual"
)

func (m CheckInMethod) Valid() bool {
	return m == MethodQR || m == MethodManual
}

// Booking is one attendee's registration against an inventory unit.
// Check-in fields are only ever written by the check-in path, which flips
// CheckedIn false→true exactly once.
type Booking struct {
	ID            uuid.UUID     `json:"id"`
	EventID       uuid.UUID     `json:"event_id"`
	CohortID      *uuid.UUID    `json:"cohort_id,omitempty"`
	Quantity      int           `json:"quantity"`
	Status        BookingStatus `json:"status"`
	AttendeeName  string        `json:"attendee_name"`
	AttendeeEmail string        `json:"attendee_email"`
	QRCode        string        `json:"qr_code,omitempty"`
	CheckedIn     bool          `json:"checked_in"`
	CheckedInAt   *time.Time    `json:"checked_in_at,omitempty"`
	CheckedInBy   string        `json:"checked_in_by,omitempty"`
	CheckInMethod CheckInMethod `json:"check_in_method,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Unit returns the inventory unit this booking draws tickets from.
func (b *Booking) Unit() UnitRef {
	return UnitRef{EventID: b.EventID, CohortID: b.CohortID}
}

// TransitionTo applies a status change, rejecting moves the graph forbids.
func (b *Booking) TransitionTo(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid booking status transition: %s -> %s", b.Status, next)
	}
	b.Status = next
	return nil
}
