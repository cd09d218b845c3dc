// Package booking implements the registration service: it reserves capacity
// through the ledger before a booking is ever persisted as confirmed, falls
// back to the waitlist when capacity is exhausted, and releases capacity on
// cancellation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ticketgate/internal/ledger"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/models"
	"ticketgate/internal/pubsub"
	"ticketgate/internal/qr"
	"ticketgate/internal/storage"
)

// promoteBatch bounds how many waitlisted bookings one promotion pass reads.
const promoteBatch = 50

type Service struct {
	log    *slog.Logger
	ledger ledger.Ledger
	store  storage.BookingStore
	pub    pubsub.Publisher
	nudge  chan models.UnitRef
}

func New(log *slog.Logger, l ledger.Ledger, store storage.BookingStore, pub pubsub.Publisher) *Service {
	return &Service{
		log:    log,
		ledger: l,
		store:  store,
		pub:    pub,
		nudge:  make(chan models.UnitRef, 16),
	}
}

type RegisterRequest struct {
	// BookingID lets a client retry a registration attempt without
	// double-reserving: a retry carries the ID of the first attempt.
	BookingID     *uuid.UUID
	EventID       uuid.UUID
	CohortID      *uuid.UUID
	Quantity      int
	AttendeeName  string
	AttendeeEmail string
}

// Register reserves capacity and persists the booking. The order is the
// non-oversell guarantee: a booking is only written as confirmed after its
// reservation already landed. On ErrCapacityExceeded the booking is written
// as waitlisted with no ledger mutation.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Booking, error) {
	const op = "booking.Register"

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%s: quantity must be positive", op)
	}

	bookingID := uuid.New()
	if req.BookingID != nil {
		bookingID = *req.BookingID

		// Retry dedup: if this attempt already produced a booking, return it
		// instead of reserving again.
		existing, err := s.store.GetBooking(ctx, bookingID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, storage.ErrBookingNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	b := &models.Booking{
		ID:            bookingID,
		EventID:       req.EventID,
		CohortID:      req.CohortID,
		Quantity:      req.Quantity,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		CreatedAt:     time.Now().UTC(),
	}
	unit := b.Unit()

	err := s.ledger.Reserve(ctx, unit, req.Quantity)
	switch {
	case err == nil:
		b.Status = models.StatusConfirmed
		b.QRCode = qr.Encode(b)
	case errors.Is(err, ledger.ErrCapacityExceeded):
		b.Status = models.StatusWaitlisted
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = s.store.SaveBooking(ctx, b); err != nil {
		// The reservation is already held; give it back rather than leak it.
		if b.Status == models.StatusConfirmed {
			if relErr := s.ledger.Release(ctx, unit, req.Quantity); relErr != nil {
				s.log.Error("failed to release reservation after save failure", sl.Err(relErr))
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if b.Status == models.StatusConfirmed {
		s.publishCounters(ctx, unit)
	}

	s.log.Info("booking registered",
		slog.String("booking_id", b.ID.String()),
		slog.String("status", string(b.Status)),
		slog.Int("quantity", b.Quantity),
	)

	return b, nil
}

// Cancel marks a booking cancelled and, when it held a reservation, releases
// exactly that quantity back to the ledger. Cancelling an already-cancelled
// booking is a no-op, not an error.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	const op = "booking.Cancel"

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch b.Status {
	case models.StatusCancelled:
		return b, nil

	case models.StatusWaitlisted:
		applied, err := s.store.TransitionBooking(ctx, bookingID, models.StatusWaitlisted, models.StatusCancelled)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !applied {
			// Lost a race with a concurrent cancel or promotion; report the
			// booking as it is now.
			return s.store.GetBooking(ctx, bookingID)
		}
		b.Status = models.StatusCancelled
		s.pub.BookingCancelled(ctx, b)

		return b, nil

	case models.StatusConfirmed:
		applied, err := s.store.TransitionBooking(ctx, bookingID, models.StatusConfirmed, models.StatusCancelled)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !applied {
			return s.store.GetBooking(ctx, bookingID)
		}
		b.Status = models.StatusCancelled

		unit := b.Unit()
		if err = s.ledger.Release(ctx, unit, b.Quantity); err != nil {
			s.log.Error("failed to release capacity on cancel", sl.Err(err),
				slog.String("booking_id", bookingID.String()))
		}

		s.pub.BookingCancelled(ctx, b)
		s.publishCounters(ctx, unit)
		s.NudgePromotion(unit)

		s.log.Info("booking cancelled",
			slog.String("booking_id", bookingID.String()),
			slog.Int("released", b.Quantity),
		)

		return b, nil

	default:
		return nil, fmt.Errorf("%s: invalid booking status transition: %s -> %s", op, b.Status, models.StatusCancelled)
	}
}

// PromoteWaitlisted promotes waitlisted bookings for a unit, oldest first,
// re-running Reserve for each so the same atomicity guards promotion. It
// stops at the first booking that no longer fits.
func (s *Service) PromoteWaitlisted(ctx context.Context, unit models.UnitRef) (int, error) {
	const op = "booking.PromoteWaitlisted"

	waiting, err := s.store.ListWaitlisted(ctx, unit, promoteBatch)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	promoted := 0
	for i := range waiting {
		b := &waiting[i]

		err = s.ledger.Reserve(ctx, unit, b.Quantity)
		if errors.Is(err, ledger.ErrCapacityExceeded) {
			break
		}
		if err != nil {
			return promoted, fmt.Errorf("%s: %w", op, err)
		}

		applied, err := s.store.TransitionBooking(ctx, b.ID, models.StatusWaitlisted, models.StatusConfirmed)
		if err != nil || !applied {
			// The booking moved under us (e.g. cancelled); give the
			// reservation back and keep going.
			if relErr := s.ledger.Release(ctx, unit, b.Quantity); relErr != nil {
				s.log.Error("failed to release after promotion race", sl.Err(relErr))
			}
			if err != nil {
				return promoted, fmt.Errorf("%s: %w", op, err)
			}
			continue
		}

		b.Status = models.StatusConfirmed
		if err = s.store.SetQRCode(ctx, b.ID, qr.Encode(b)); err != nil {
			s.log.Error("failed to store qr code for promoted booking", sl.Err(err),
				slog.String("booking_id", b.ID.String()))
		}

		promoted++

		s.log.Info("waitlisted booking promoted",
			slog.String("booking_id", b.ID.String()),
			slog.Int("quantity", b.Quantity),
		)
	}

	if promoted > 0 {
		s.publishCounters(ctx, unit)
	}

	return promoted, nil
}

// NudgePromotion asks the sweep to look at a unit soon. Non-blocking: if the
// buffer is full a periodic pass will cover it.
func (s *Service) NudgePromotion(unit models.UnitRef) {
	select {
	case s.nudge <- unit:
	default:
	}
}

// RunPromotionSweep promotes waitlisted bookings until ctx is cancelled:
// immediately for nudged units and periodically across all units with a
// waitlist, so a missed nudge is only delayed, never lost.
func (s *Service) RunPromotionSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case unit := <-s.nudge:
			if _, err := s.PromoteWaitlisted(ctx, unit); err != nil {
				s.log.Error("waitlist promotion failed", sl.Err(err))
			}
		case <-ticker.C:
			units, err := s.store.ListWaitlistedUnits(ctx)
			if err != nil {
				s.log.Error("failed to list waitlisted units", sl.Err(err))
				continue
			}
			for _, unit := range units {
				if _, err := s.PromoteWaitlisted(ctx, unit); err != nil {
					s.log.Error("waitlist promotion failed", sl.Err(err))
				}
			}
		}
	}
}

func (s *Service) publishCounters(ctx context.Context, unit models.UnitRef) {
	counters, err := s.ledger.Counters(ctx, unit)
	if err != nil {
		s.log.Error("failed to read counters", sl.Err(err))
		return
	}
	s.pub.CounterChanged(ctx, unit, counters)
}
