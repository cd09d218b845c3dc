// Package qr encodes and decodes the compact identity payload printed on a
// ticket's QR code. The payload is an identity claim, not a capability token:
// the check-in protocol establishes validity by looking the booking up
// server-side, never by trusting the payload's contents.
package qr

import (
	"encoding/json"
	"errors"
	"strings"

	"ticketgate/internal/models"
)

// ErrInvalidPayload is returned for input that is structured data but does
// not carry a booking identity (e.g. JSON with no bookingId).
var ErrInvalidPayload = errors.New("invalid qr payload")

// Payload is the identity claim carried by a ticket's QR code.
type Payload struct {
	BookingID string `json:"bookingId"`
	EventID   string `json:"eventId"`
	UserID    string `json:"userId,omitempty"`
}

// Encode serialises a booking's identity into the string rendered as a QR
// code. The output is deterministic for a given booking.
func Encode(b *models.Booking) string {
	p := Payload{
		BookingID: b.ID.String(),
		EventID:   b.EventID.String(),
		UserID:    b.AttendeeEmail,
	}

	// Marshal of a struct with fixed field order cannot fail here.
	raw, _ := json.Marshal(p)

	return string(raw)
}

// Decode parses scanned or operator-typed text into a Payload. JSON input is
// structurally validated; anything else is treated as a bare bookingID
// candidate so manual entry of just the ID works. Booking lookup is the
// check-in protocol's job, not Decode's.
func Decode(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, ErrInvalidPayload
	}

	if strings.HasPrefix(raw, "{") {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return Payload{}, ErrInvalidPayload
		}
		if p.BookingID == "" {
			return Payload{}, ErrInvalidPayload
		}
		return p, nil
	}

	// Manual fallback: the raw text is the bookingID itself. EventID stays
	// empty, which the protocol treats as "no event claim to verify".
	return Payload{BookingID: raw}, nil
}
