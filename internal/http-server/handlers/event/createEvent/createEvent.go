package createEvent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ticketgate/internal/lib/api/response"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/models"
)

type CohortRequest struct {
	Name     string    `json:"name" validate:"required"`
	Capacity int       `json:"capacity" validate:"required,min=1"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
}

type EventRequest struct {
	Name     string          `json:"name" validate:"required"`
	Capacity int             `json:"capacity" validate:"required,min=1"`
	Cohorts  []CohortRequest `json:"cohorts" validate:"dive"`
}

type EventResponse struct {
	response.Response
	EventID   string   `json:"event_id"`
	CohortIDs []string `json:"cohort_ids,omitempty"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventCreator
type EventCreator interface {
	CreateEvent(ctx context.Context, event *models.Event, cohorts []models.Cohort) error
}

func New(log *slog.Logger, events EventCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.createEvent.New"

		log = log.With(slog.String("op", op))

		var req EventRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		log.Info("request body decoded", slog.Any("request", req))

		if err = validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("invalid request", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ValidationError(validateErr))
				return
			}
		}

		event := &models.Event{
			ID:        uuid.New(),
			Name:      req.Name,
			Capacity:  req.Capacity,
			CreatedAt: time.Now().UTC(),
		}

		cohorts := make([]models.Cohort, 0, len(req.Cohorts))
		for _, c := range req.Cohorts {
			cohorts = append(cohorts, models.Cohort{
				ID:       uuid.New(),
				EventID:  event.ID,
				Name:     c.Name,
				Capacity: c.Capacity,
				StartsAt: c.StartsAt,
			})
		}

		if err = events.CreateEvent(r.Context(), event, cohorts); err != nil {
			log.Error("failed to create event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to create event"))
			return
		}

		log.Info("event created", slog.String("event_id", event.ID.String()))

		cohortIDs := make([]string, 0, len(cohorts))
		for _, c := range cohorts {
			cohortIDs = append(cohortIDs, c.ID.String())
		}

		render.JSON(w, r, EventResponse{
			Response:  response.OK(),
			EventID:   event.ID.String(),
			CohortIDs: cohortIDs,
		})
	}
}
