// Package memory implements the storage boundary in process memory. It backs
// the service-level tests and upholds the same atomicity contract as the
// Postgres backend: every mutation is a single step under the store mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketgate/internal/models"
	"ticketgate/internal/storage"
)

type Storage struct {
	mu       sync.Mutex
	events   map[uuid.UUID]*models.Event
	cohorts  map[uuid.UUID]*models.Cohort
	bookings map[uuid.UUID]*models.Booking
}

func New() *Storage {
	return &Storage{
		events:   make(map[uuid.UUID]*models.Event),
		cohorts:  make(map[uuid.UUID]*models.Cohort),
		bookings: make(map[uuid.UUID]*models.Booking),
	}
}

func (s *Storage) CreateEvent(_ context.Context, event *models.Event, cohorts []models.Cohort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := *event
	s.events[e.ID] = &e
	for _, c := range cohorts {
		c := c
		c.EventID = e.ID
		s.cohorts[c.ID] = &c
	}

	return nil
}

func (s *Storage) GetEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, storage.ErrEventNotFound
	}

	copied := *e
	return &copied, nil
}

func (s *Storage) ListEvents(_ context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})

	return events, nil
}

func (s *Storage) ListCohorts(_ context.Context, eventID uuid.UUID) ([]models.Cohort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cohorts []models.Cohort
	for _, c := range s.cohorts {
		if c.EventID == eventID {
			cohorts = append(cohorts, *c)
		}
	}
	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].StartsAt.Before(cohorts[j].StartsAt)
	})

	return cohorts, nil
}

func (s *Storage) SaveBooking(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[b.ID]; exists {
		return nil
	}

	copied := *b
	s.bookings[b.ID] = &copied

	return nil
}

func (s *Storage) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, storage.ErrBookingNotFound
	}

	copied := *b
	return &copied, nil
}

func (s *Storage) TransitionBooking(_ context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return false, storage.ErrBookingNotFound
	}
	if b.Status != from {
		return false, nil
	}
	if err := b.TransitionTo(to); err != nil {
		return false, err
	}

	return true, nil
}

func (s *Storage) ApplyCheckIn(_ context.Context, id uuid.UUID, at time.Time, by string, method models.CheckInMethod) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return false, storage.ErrBookingNotFound
	}
	if b.CheckedIn || b.Status != models.StatusConfirmed {
		return false, nil
	}

	b.CheckedIn = true
	t := at
	b.CheckedInAt = &t
	b.CheckedInBy = by
	b.CheckInMethod = method

	return true, nil
}

func (s *Storage) SetQRCode(_ context.Context, id uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return storage.ErrBookingNotFound
	}
	b.QRCode = code

	return nil
}

func (s *Storage) ListWaitlistedUnits(_ context.Context) ([]models.UnitRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var units []models.UnitRef
	for _, b := range s.bookings {
		if b.Status != models.StatusWaitlisted {
			continue
		}
		unit := b.Unit()
		if _, ok := seen[unit.Key()]; ok {
			continue
		}
		seen[unit.Key()] = struct{}{}
		units = append(units, unit)
	}

	return units, nil
}

func (s *Storage) ListBookingsByEvent(_ context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, b := range s.bookings {
		if b.EventID == eventID {
			bookings = append(bookings, *b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})

	return bookings, nil
}

func (s *Storage) ListWaitlisted(_ context.Context, unit models.UnitRef, limit int) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, b := range s.bookings {
		if b.Status != models.StatusWaitlisted {
			continue
		}
		if b.Unit().Key() != unit.Key() {
			continue
		}
		bookings = append(bookings, *b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})

	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}

	return bookings, nil
}
