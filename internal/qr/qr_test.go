package qr

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	b := &models.Booking{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		AttendeeEmail: "alice@example.com",
	}

	p, err := Decode(Encode(b))
	require.NoError(t, err)

	assert.Equal(t, b.ID.String(), p.BookingID)
	assert.Equal(t, b.EventID.String(), p.EventID)
	assert.Equal(t, "alice@example.com", p.UserID)
}

func TestEncodeDeterministic(t *testing.T) {
	t.Parallel()

	b := &models.Booking{ID: uuid.New(), EventID: uuid.New()}

	assert.Equal(t, Encode(b), Encode(b))
}

func TestDecodeBareBookingID(t *testing.T) {
	t.Parallel()

	p, err := Decode("  bk_12345  ")
	require.NoError(t, err)

	assert.Equal(t, "bk_12345", p.BookingID)
	assert.Empty(t, p.EventID)
}

func TestDecodeGarbageBecomesBareID(t *testing.T) {
	t.Parallel()

	// Operator-typed nonsense is not rejected outright; it becomes a lookup
	// candidate that resolves to booking-not-found downstream.
	p, err := Decode("garbage")
	require.NoError(t, err)
	assert.Equal(t, "garbage", p.BookingID)
}

func TestDecodeInvalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"broken json", `{"bookingId": `},
		{"json without bookingId", `{"eventId": "evt-1"}`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode(tc.raw)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}
