package register

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/http-server/handlers/booking/register/mocks"
	"ticketgate/internal/ledger"
	"ticketgate/internal/lib/logger/handlers/slogdiscard"
	"ticketgate/internal/models"
)

func TestRegisterHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	eventID := uuid.New()
	bookingID := uuid.New()

	testCases := []struct {
		name           string
		eventID        string
		requestBody    string
		mockSetup      func(m *mocks.Registrar)
		expectedStatus int
		checkBody      func(t *testing.T, body string)
	}{
		{
			name:        "Confirmed",
			eventID:     eventID.String(),
			requestBody: `{"quantity": 1, "attendee_name": "Alice", "attendee_email": "alice@example.com"}`,
			mockSetup: func(m *mocks.Registrar) {
				m.On("Register", mock.Anything, mock.Anything).Return(&models.Booking{
					ID:      bookingID,
					EventID: eventID,
					Status:  models.StatusConfirmed,
					QRCode:  "qr-data",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"status":"confirmed"`)
				assert.Contains(t, body, `"qr_code":"qr-data"`)
			},
		},
		{
			name:        "Waitlisted",
			eventID:     eventID.String(),
			requestBody: `{"quantity": 2, "attendee_name": "Bob", "attendee_email": "bob@example.com"}`,
			mockSetup: func(m *mocks.Registrar) {
				m.On("Register", mock.Anything, mock.Anything).Return(&models.Booking{
					ID:      bookingID,
					EventID: eventID,
					Status:  models.StatusWaitlisted,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"status":"waitlisted"`)
			},
		},
		{
			name:           "Missing event ID",
			eventID:        "",
			requestBody:    `{"quantity": 1, "attendee_name": "Alice", "attendee_email": "alice@example.com"}`,
			mockSetup:      func(m *mocks.Registrar) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "event id is required")
			},
		},
		{
			name:           "Invalid event ID format",
			eventID:        "42",
			requestBody:    `{"quantity": 1, "attendee_name": "Alice", "attendee_email": "alice@example.com"}`,
			mockSetup:      func(m *mocks.Registrar) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid event id format")
			},
		},
		{
			name:           "Invalid JSON",
			eventID:        eventID.String(),
			requestBody:    `not json`,
			mockSetup:      func(m *mocks.Registrar) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "failed to decode request")
			},
		},
		{
			name:           "Missing quantity",
			eventID:        eventID.String(),
			requestBody:    `{"attendee_name": "Alice", "attendee_email": "alice@example.com"}`,
			mockSetup:      func(m *mocks.Registrar) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "Quantity")
			},
		},
		{
			name:           "Invalid email",
			eventID:        eventID.String(),
			requestBody:    `{"quantity": 1, "attendee_name": "Alice", "attendee_email": "nope"}`,
			mockSetup:      func(m *mocks.Registrar) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "AttendeeEmail")
			},
		},
		{
			name:        "Event not found",
			eventID:     eventID.String(),
			requestBody: `{"quantity": 1, "attendee_name": "Alice", "attendee_email": "alice@example.com"}`,
			mockSetup: func(m *mocks.Registrar) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, ledger.ErrUnitNotFound)
			},
			expectedStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "event not found")
			},
		},
		{
			name:        "Internal error",
			eventID:     eventID.String(),
			requestBody: `{"quantity": 1, "attendee_name": "Alice", "attendee_email": "alice@example.com"}`,
			mockSetup: func(m *mocks.Registrar) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "failed to register")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockRegistrar := mocks.NewRegistrar(t)
			tc.mockSetup(mockRegistrar)

			handler := New(logger, mockRegistrar)

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
