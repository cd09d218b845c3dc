package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ticketgate/internal/booking"
	"ticketgate/internal/ledger"
	"ticketgate/internal/lib/api/response"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/models"
)

type RegisterRequest struct {
	// BookingID is optional; a client retrying a failed attempt sends the
	// same ID so the registration is not reserved twice.
	BookingID     string `json:"booking_id,omitempty" validate:"omitempty,uuid"`
	CohortID      string `json:"cohort_id,omitempty" validate:"omitempty,uuid"`
	Quantity      int    `json:"quantity" validate:"required,min=1"`
	AttendeeName  string `json:"attendee_name" validate:"required"`
	AttendeeEmail string `json:"attendee_email" validate:"required,email"`
}

type RegisterResponse struct {
	response.Response
	Booking *models.Booking `json:"booking"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=Registrar
type Registrar interface {
	Register(ctx context.Context, req booking.RegisterRequest) (*models.Booking, error)
}

func New(log *slog.Logger, registrar Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.booking.register.New"

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

		var req RegisterRequest

		err = render.DecodeJSON(r.Body, &req)
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

		svcReq := booking.RegisterRequest{
			EventID:       eventID,
			Quantity:      req.Quantity,
			AttendeeName:  req.AttendeeName,
			AttendeeEmail: req.AttendeeEmail,
		}
		if req.BookingID != "" {
			id := uuid.MustParse(req.BookingID)
			svcReq.BookingID = &id
		}
		if req.CohortID != "" {
			id := uuid.MustParse(req.CohortID)
			svcReq.CohortID = &id
		}

		b, err := registrar.Register(r.Context(), svcReq)
		if err != nil {
			log.Error("failed to register", sl.Err(err))

			if errors.Is(err, ledger.ErrUnitNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
				return
			}

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to register"))
			return
		}

		log.Info("registration completed",
			slog.String("booking_id", b.ID.String()),
			slog.String("status", string(b.Status)),
		)

		// Waitlisted is still a successful registration; the status field
		// tells the client which outcome it was.
		render.JSON(w, r, RegisterResponse{
			Response: response.OK(),
			Booking:  b,
		})
	}
}
