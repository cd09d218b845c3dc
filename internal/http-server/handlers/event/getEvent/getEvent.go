package getEvent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"ticketgate/internal/lib/api/response"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/models"
	"ticketgate/internal/storage"
)

// EventInfoResponse carries the counters the reporting and UI collaborators
// read: capacity, reserved, checked-in, and the derived available count.
type EventInfoResponse struct {
	response.Response
	Event            *models.Event    `json:"event"`
	AvailableTickets int              `json:"available_tickets"`
	Cohorts          []models.Cohort  `json:"cohorts,omitempty"`
	Bookings         []models.Booking `json:"bookings,omitempty"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventGetter
type EventGetter interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListCohorts(ctx context.Context, eventID uuid.UUID) ([]models.Cohort, error)
	ListBookingsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error)
}

func New(log *slog.Logger, events EventGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.getEvent.New"

		log = log.With(slog.String("op", op))

		eventIDStr := chi.URLParam(r, "id")
		if eventIDStr == "" {
			log.Error("event id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event id is required"))
			return
		}

		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			log.Error("invalid event id format", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid event id format"))
			return
		}

		log = log.With(slog.String("event_id", eventID.String()))

		event, err := events.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, storage.ErrEventNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
				return
			}

			log.Error("failed to get event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get event"))
			return
		}

		cohorts, err := events.ListCohorts(r.Context(), eventID)
		if err != nil {
			log.Error("failed to list cohorts", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get event"))
			return
		}

		bookings, err := events.ListBookingsByEvent(r.Context(), eventID)
		if err != nil {
			log.Error("failed to list bookings", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get event"))
			return
		}

		log.Info("event info received")

		render.JSON(w, r, EventInfoResponse{
			Response:         response.OK(),
			Event:            event,
			AvailableTickets: event.Available(),
			Cohorts:          cohorts,
			Bookings:         bookings,
		})
	}
}
