package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a published event and the top-level inventory unit. Bookings that
// carry no cohort draw tickets from the event's own capacity pool.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Reserved  int       `json:"reserved"`
	CheckedIn int       `json:"checked_in"`
	CreatedAt time.Time `json:"created_at"`
}

// Available returns the number of tickets still open for reservation.
func (e *Event) Available() int {
	return e.Capacity - e.Reserved
}

// Cohort is a session inside an event with its own capacity pool.
type Cohort struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Reserved  int       `json:"reserved"`
	CheckedIn int       `json:"checked_in"`
	StartsAt  time.Time `json:"starts_at"`
}

func (c *Cohort) Available() int {
	return c.Capacity - c.Reserved
}

// UnitRef names the inventory unit a booking draws from: the event itself,
// or a cohort within it when CohortID is set.
type UnitRef struct {
	EventID  uuid.UUID
	CohortID *uuid.UUID
}

func EventUnit(eventID uuid.UUID) UnitRef {
	return UnitRef{EventID: eventID}
}

func CohortUnit(eventID, cohortID uuid.UUID) UnitRef {
	return UnitRef{EventID: eventID, CohortID: &cohortID}
}

// Key returns a stable string identity for the unit, used by in-memory
// storage and pub/sub channel names.
func (u UnitRef) Key() string {
	if u.CohortID != nil {
		return u.EventID.String() + "/" + u.CohortID.String()
	}
	return u.EventID.String()
}
