package cancelBooking

import (
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

	"ticketgate/internal/http-server/handlers/booking/cancelBooking/mocks"
	"ticketgate/internal/lib/logger/handlers/slogdiscard"
	"ticketgate/internal/models"
	"ticketgate/internal/storage"
)

func TestCancelBookingHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	bookingID := uuid.New()

	testCases := []struct {
		name           string
		bookingID      string
		mockSetup      func(m *mocks.BookingCanceller)
		expectedStatus int
		checkBody      func(t *testing.T, body string)
	}{
		{
			name:      "Success",
			bookingID: bookingID.String(),
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, bookingID).Return(&models.Booking{
					ID:     bookingID,
					Status: models.StatusCancelled,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"status":"cancelled"`)
			},
		},
		{
			name:           "Missing booking ID",
			bookingID:      "",
			mockSetup:      func(m *mocks.BookingCanceller) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "booking id is required")
			},
		},
		{
			name:           "Invalid booking ID format",
			bookingID:      "abc",
			mockSetup:      func(m *mocks.BookingCanceller) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid booking id format")
			},
		},
		{
			name:      "Booking not found",
			bookingID: bookingID.String(),
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, bookingID).Return(nil, storage.ErrBookingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "booking not found")
			},
		},
		{
			name:      "Internal error",
			bookingID: bookingID.String(),
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, bookingID).Return(nil, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "failed to cancel booking")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockCanceller := mocks.NewBookingCanceller(t)
			tc.mockSetup(mockCanceller)

			handler := New(logger, mockCanceller)

			req, err := http.NewRequest("POST", "/", nil)
			require.NoError(t, err)

			rctx := chi.NewRouteContext()
			if tc.bookingID != "" {
				rctx.URLParams.Add("id", tc.bookingID)
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
