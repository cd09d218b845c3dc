package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/ledger"
	"ticketgate/internal/lib/logger/handlers/slogdiscard"
	"ticketgate/internal/models"
	"ticketgate/internal/qr"
	"ticketgate/internal/storage/memory"
)

type fixture struct {
	protocol *Protocol
	ledger   *ledger.Memory
	store    *memory.Storage
	eventID  uuid.UUID
	booking  *models.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	led := ledger.NewMemory()
	store := memory.New()
	eventID := uuid.New()
	unit := models.EventUnit(eventID)
	led.AddUnit(unit, 10)

	require.NoError(t, led.Reserve(context.Background(), unit, 1))

	b := &models.Booking{
		ID:            uuid.New(),
		EventID:       eventID,
		Quantity:      1,
		Status:        models.StatusConfirmed,
		AttendeeName:  "Alice",
		AttendeeEmail: "alice@example.com",
		CreatedAt:     time.Now().UTC(),
	}
	b.QRCode = qr.Encode(b)
	require.NoError(t, store.SaveBooking(context.Background(), b))

	return &fixture{
		protocol: New(slogdiscard.NewDiscardLogger(), led, store),
		ledger:   led,
		store:    store,
		eventID:  eventID,
		booking:  b,
	}
}

func (f *fixture) payload(t *testing.T) qr.Payload {
	t.Helper()

	p, err := qr.Decode(f.booking.QRCode)
	require.NoError(t, err)
	return p
}

func TestCheckInSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	res, err := f.protocol.CheckIn(context.Background(), f.payload(t), f.eventID, "staff-1", models.MethodQR)
	require.NoError(t, err)

	assert.Equal(t, Success, res.Kind)
	require.NotNil(t, res.Booking)
	assert.True(t, res.Booking.CheckedIn)
	assert.Equal(t, "staff-1", res.CheckedInBy)
	require.NotNil(t, res.CheckedInAt)

	c, err := f.ledger.Counters(context.Background(), models.EventUnit(f.eventID))
	require.NoError(t, err)
	assert.Equal(t, 1, c.CheckedIn)
}

func TestCheckInIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	first, err := f.protocol.CheckIn(context.Background(), f.payload(t), f.eventID, "staff-1", models.MethodQR)
	require.NoError(t, err)
	require.Equal(t, Success, first.Kind)

	second, err := f.protocol.CheckIn(context.Background(), f.payload(t), f.eventID, "staff-2", models.MethodQR)
	require.NoError(t, err)

	assert.Equal(t, AlreadyCheckedIn, second.Kind)
	assert.Equal(t, "staff-1", second.CheckedInBy, "the soft outcome carries the original actor")
	require.NotNil(t, second.CheckedInAt)
	assert.Equal(t, first.CheckedInAt.Unix(), second.CheckedInAt.Unix())

	// The dashboard counter must reflect exactly one check-in.
	c, err := f.ledger.Counters(context.Background(), models.EventUnit(f.eventID))
	require.NoError(t, err)
	assert.Equal(t, 1, c.CheckedIn)
}

func TestCheckInConcurrentScanners(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	const scanners = 8

	payload := f.payload(t)
	results := make([]Result, scanners)
	errs := make([]error, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.protocol.CheckIn(context.Background(), payload, f.eventID, "scanner", models.MethodQR)
		}(i)
	}
	wg.Wait()

	success, already := 0, 0
	for i := range results {
		require.NoError(t, errs[i])
		switch results[i].Kind {
		case Success:
			success++
		case AlreadyCheckedIn:
			already++
		}
	}

	assert.Equal(t, 1, success, "exactly one scanner observes the flip")
	assert.Equal(t, scanners-1, already)

	c, err := f.ledger.Counters(context.Background(), models.EventUnit(f.eventID))
	require.NoError(t, err)
	assert.Equal(t, 1, c.CheckedIn)
}

func TestCheckInEventMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	res, err := f.protocol.CheckIn(context.Background(), f.payload(t), uuid.New(), "staff-1", models.MethodQR)
	require.NoError(t, err)

	assert.Equal(t, EventMismatch, res.Kind)

	b, err := f.store.GetBooking(context.Background(), f.booking.ID)
	require.NoError(t, err)
	assert.False(t, b.CheckedIn, "a mismatched ticket is never checked in")
}

func TestCheckInBareIDPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// Manual entry of just the booking ID: no event claim in the payload,
	// the booking row decides.
	p, err := qr.Decode(f.booking.ID.String())
	require.NoError(t, err)

	res, err := f.protocol.CheckIn(context.Background(), p, f.eventID, "staff-1", models.MethodManual)
	require.NoError(t, err)

	assert.Equal(t, Success, res.Kind)
	assert.Equal(t, models.MethodManual, res.Booking.CheckInMethod)
}

func TestCheckInBareIDWrongEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	p, err := qr.Decode(f.booking.ID.String())
	require.NoError(t, err)

	res, err := f.protocol.CheckIn(context.Background(), p, uuid.New(), "staff-1", models.MethodManual)
	require.NoError(t, err)

	assert.Equal(t, EventMismatch, res.Kind)
}

func TestCheckInBookingNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	p, err := qr.Decode(uuid.New().String())
	require.NoError(t, err)

	res, err := f.protocol.CheckIn(context.Background(), p, f.eventID, "staff-1", models.MethodManual)
	require.NoError(t, err)
	assert.Equal(t, BookingNotFound, res.Kind)

	// Typed garbage is a lookup candidate that cannot parse to any issued
	// booking ID.
	p, err = qr.Decode("garbage")
	require.NoError(t, err)

	res, err = f.protocol.CheckIn(context.Background(), p, f.eventID, "staff-1", models.MethodManual)
	require.NoError(t, err)
	assert.Equal(t, BookingNotFound, res.Kind)
}

func TestCheckInCancelledBooking(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	applied, err := f.store.TransitionBooking(context.Background(), f.booking.ID, models.StatusConfirmed, models.StatusCancelled)
	require.NoError(t, err)
	require.True(t, applied)

	res, err := f.protocol.CheckIn(context.Background(), f.payload(t), f.eventID, "staff-1", models.MethodQR)
	require.NoError(t, err)

	assert.Equal(t, BookingCancelled, res.Kind)
}
