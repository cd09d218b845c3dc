package getEvent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticketgate/internal/http-server/handlers/event/getEvent/mocks"
	"ticketgate/internal/lib/logger/handlers/slogdiscard"
	"ticketgate/internal/models"
	"ticketgate/internal/storage"
)

func TestGetEventHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	eventID := uuid.New()

	testCases := []struct {
		name           string
		eventID        string
		mockSetup      func(m *mocks.EventGetter)
		expectedStatus int
		checkBody      func(t *testing.T, body string)
	}{
		{
			name:    "Success with counters",
			eventID: eventID.String(),
			mockSetup: func(m *mocks.EventGetter) {
				m.On("GetEvent", mock.Anything, eventID).Return(&models.Event{
					ID: eventID, Name: "GopherCon", Capacity: 100, Reserved: 40, CheckedIn: 12,
				}, nil)
				m.On("ListCohorts", mock.Anything, eventID).Return(nil, nil)
				m.On("ListBookingsByEvent", mock.Anything, eventID).Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"available_tickets":60`)
				assert.Contains(t, body, `"reserved":40`)
				assert.Contains(t, body, `"checked_in":12`)
			},
		},
		{
			name:           "Missing event ID",
			eventID:        "",
			mockSetup:      func(m *mocks.EventGetter) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "event id is required")
			},
		},
		{
			name:           "Invalid event ID format",
			eventID:        "not-a-uuid",
			mockSetup:      func(m *mocks.EventGetter) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "invalid event id format")
			},
		},
		{
			name:    "Event not found",
			eventID: eventID.String(),
			mockSetup: func(m *mocks.EventGetter) {
				m.On("GetEvent", mock.Anything, eventID).Return(nil, storage.ErrEventNotFound)
			},
			expectedStatus: http.StatusNotFound,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, "event not found")
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockGetter := mocks.NewEventGetter(t)
			tc.mockSetup(mockGetter)

			handler := New(logger, mockGetter)

			req, err := http.NewRequest("GET", "/", nil)
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
