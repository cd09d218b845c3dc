// Package checkin implements the per-booking check-in state machine: a
// scanned or typed code is validated against its booking and attendance is
// recorded exactly once, no matter how many devices race or retry.
package checkin

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
	"ticketgate/internal/qr"
	"ticketgate/internal/storage"
)

// ResultKind is the closed set of check-in outcomes. Only infrastructure
// failures travel as errors; every domain outcome is a kind, so callers
// branch instead of unwrapping faults.
type ResultKind string

const (
	Success          ResultKind = "success"
	AlreadyCheckedIn ResultKind = "already_checked_in"
	EventMismatch    ResultKind = "event_mismatch"
	BookingNotFound  ResultKind = "booking_not_found"
	BookingCancelled ResultKind = "booking_cancelled"
)

// Result is the outcome of one check-in attempt. AlreadyCheckedIn is soft:
// it carries the original check-in time and actor so staff can see who and
// when, and it is never treated as a failure.
type Result struct {
	Kind        ResultKind      `json:"kind"`
	Booking     *models.Booking `json:"booking,omitempty"`
	CheckedInAt *time.Time      `json:"checked_in_at,omitempty"`
	CheckedInBy string          `json:"checked_in_by,omitempty"`
}

type Protocol struct {
	log    *slog.Logger
	ledger ledger.Ledger
	store  storage.BookingStore
}

func New(log *slog.Logger, l ledger.Ledger, store storage.BookingStore) *Protocol {
	return &Protocol{log: log, ledger: l, store: store}
}

// CheckIn validates a decoded payload against the scanner's event and flips
// the booking's checked-in flag. The flip is one atomic conditional write:
// of any set of racing callers exactly one observes Success and the rest
// land on AlreadyCheckedIn. Retries are safe for the same reason.
func (p *Protocol) CheckIn(ctx context.Context, payload qr.Payload, scannerEventID uuid.UUID, actor string, method models.CheckInMethod) (Result, error) {
	const op = "checkin.CheckIn"

	// An explicit event claim that names a different event is rejected
	// before any lookup; a bare-ID payload has no claim to verify here.
	if payload.EventID != "" && payload.EventID != scannerEventID.String() {
		return Result{Kind: EventMismatch}, nil
	}

	bookingID, err := uuid.Parse(payload.BookingID)
	if err != nil {
		// Typed nonsense: not a booking we could ever have issued.
		return Result{Kind: BookingNotFound}, nil
	}

	b, err := p.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, storage.ErrBookingNotFound) {
			return Result{Kind: BookingNotFound}, nil
		}
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	// The payload may be bare; the booking row is authoritative for which
	// event the ticket belongs to.
	if b.EventID != scannerEventID {
		return Result{Kind: EventMismatch}, nil
	}

	if b.Status == models.StatusCancelled {
		return Result{Kind: BookingCancelled, Booking: b}, nil
	}

	if b.CheckedIn {
		return Result{
			Kind:        AlreadyCheckedIn,
			Booking:     b,
			CheckedInAt: b.CheckedInAt,
			CheckedInBy: b.CheckedInBy,
		}, nil
	}

	now := time.Now().UTC()
	applied, err := p.store.ApplyCheckIn(ctx, bookingID, now, actor, method)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if !applied {
		// Another scanner won the flip (or the booking was cancelled in
		// between); re-read and report the current state.
		b, err = p.store.GetBooking(ctx, bookingID)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if b.Status == models.StatusCancelled {
			return Result{Kind: BookingCancelled, Booking: b}, nil
		}
		return Result{
			Kind:        AlreadyCheckedIn,
			Booking:     b,
			CheckedInAt: b.CheckedInAt,
			CheckedInBy: b.CheckedInBy,
		}, nil
	}

	if err = p.ledger.RecordCheckIn(ctx, b.Unit()); err != nil {
		// The per-booking flip is the source of truth; a failed dashboard
		// counter update does not undo the check-in.
		p.log.Error("failed to record check-in counter", sl.Err(err),
			slog.String("booking_id", bookingID.String()))
	}

	b.CheckedIn = true
	b.CheckedInAt = &now
	b.CheckedInBy = actor
	b.CheckInMethod = method

	p.log.Info("attendee checked in",
		slog.String("booking_id", bookingID.String()),
		slog.String("actor", actor),
		slog.String("method", string(method)),
	)

	return Result{Kind: Success, Booking: b, CheckedInAt: &now, CheckedInBy: actor}, nil
}
