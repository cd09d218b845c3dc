package checkIn

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/checkin"
	"ticketgate/internal/http-server/handlers/checkin/checkIn/mocks"
	"ticketgate/internal/lib/logger/handlers/slogdiscard"
	"ticketgate/internal/models"
	"ticketgate/internal/qr"
)

func TestCheckInHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	eventID := uuid.New()
	bookingID := uuid.New()
	checkedInAt := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)

	testCases := []struct {
		name           string
		eventID        string
		requestBody    string
		mockSetup      func(m *mocks.CheckInPerformer)
		expectedStatus int
		checkBody      func(t *testing.T, body string)
	}{
		{
			name:        "Success",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + bookingID.String() + `", "actor": "gate-1"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything,
					qr.Payload{BookingID: bookingID.String()},
					eventID, "gate-1", models.MethodQR,
				).Return(checkin.Result{
					Kind:        checkin.Success,
					Booking:     &models.Booking{ID: bookingID, EventID: eventID},
					CheckedInAt: &checkedInAt,
					CheckedInBy: "gate-1",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"kind":"success"`)
			},
		},
		{
			name:        "Already checked in",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + bookingID.String() + `", "actor": "gate-2"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything, mock.Anything, eventID, "gate-2", models.MethodQR).
					Return(checkin.Result{
						Kind:        checkin.AlreadyCheckedIn,
						CheckedInAt: &checkedInAt,
						CheckedInBy: "gate-1",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"kind":"already_checked_in"`)
				assert.Contains(t, body, `"checked_in_by":"gate-1"`)
			},
		},
		{
			name:        "Manual method",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + bookingID.String() + `", "actor": "desk", "method": "manual"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything, mock.Anything, eventID, "desk", models.MethodManual).
					Return(checkin.Result{Kind: checkin.Success}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"kind":"success"`)
			},
		},
		{
			name:        "Booking not found",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + uuid.NewString() + `", "actor": "gate-1"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything, mock.Anything, eventID, "gate-1", models.MethodQR).
					Return(checkin.Result{Kind: checkin.BookingNotFound}, nil)
			},
			expectedStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "booking not found")
			},
		},
		{
			name:        "Event mismatch",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + bookingID.String() + `", "actor": "gate-1"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything, mock.Anything, eventID, "gate-1", models.MethodQR).
					Return(checkin.Result{Kind: checkin.EventMismatch}, nil)
			},
			expectedStatus: http.StatusConflict,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "event_mismatch")
			},
		},
		{
			name:        "Booking cancelled",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + bookingID.String() + `", "actor": "gate-1"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything, mock.Anything, eventID, "gate-1", models.MethodQR).
					Return(checkin.Result{Kind: checkin.BookingCancelled}, nil)
			},
			expectedStatus: http.StatusConflict,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "booking_cancelled")
			},
		},
		{
			name:           "Missing event ID",
			eventID:        "",
			requestBody:    `{"code": "abc", "actor": "gate-1"}`,
			mockSetup:      func(m *mocks.CheckInPerformer) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "event id is required")
			},
		},
		{
			name:           "Invalid event ID format",
			eventID:        "42",
			requestBody:    `{"code": "abc", "actor": "gate-1"}`,
			mockSetup:      func(m *mocks.CheckInPerformer) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid event id format")
			},
		},
		{
			name:           "Invalid JSON",
			eventID:        eventID.String(),
			requestBody:    `not json`,
			mockSetup:      func(m *mocks.CheckInPerformer) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "failed to decode request")
			},
		},
		{
			name:           "Missing actor",
			eventID:        eventID.String(),
			requestBody:    `{"code": "abc"}`,
			mockSetup:      func(m *mocks.CheckInPerformer) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "Actor")
			},
		},
		{
			name:           "Structurally invalid code",
			eventID:        eventID.String(),
			requestBody:    `{"code": "{\"eventId\": \"x\"}", "actor": "gate-1"}`,
			mockSetup:      func(m *mocks.CheckInPerformer) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid code")
			},
		},
		{
			name:        "Internal error",
			eventID:     eventID.String(),
			requestBody: `{"code": "` + bookingID.String() + `", "actor": "gate-1"}`,
			mockSetup: func(m *mocks.CheckInPerformer) {
				m.On("CheckIn", mock.Anything, mock.Anything, eventID, "gate-1", models.MethodQR).
					Return(checkin.Result{}, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "check-in failed")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockPerformer := mocks.NewCheckInPerformer(t)
			tc.mockSetup(mockPerformer)

			handler := New(logger, mockPerformer)

			req, err := http.NewRequest("POST", "/", bytes.NewBufferString(tc.requestBody))
			require.NoError(t, err)

			rctx := chi.NewRouteContext()
			if tc.eventID != "" {
				rctx.URLParams.Add("id", tc.eventID)
			}
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.checkBody != nil {
				tc.checkBody(t, rr.Body.String())
			}
		})
	}
}
