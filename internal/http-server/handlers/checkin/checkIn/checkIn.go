package checkIn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ticketgate/internal/checkin"
	"ticketgate/internal/lib/api/response"
	"ticketgate/internal/lib/logger/sl"
	"ticketgate/internal/models"
	"ticketgate/internal/qr"
)

type CheckInRequest struct {
	Code   string `json:"code" validate:"required"`
	Actor  string `json:"actor" validate:"required"`
	Method string `json:"method,omitempty" validate:"omitempty,oneof=qr manual"`
}

type CheckInResponse struct {
	response.Response
	Result checkin.Result `json:"result"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=CheckInPerformer
type CheckInPerformer interface {
	CheckIn(ctx context.Context, payload qr.Payload, scannerEventID uuid.UUID, actor string, method models.CheckInMethod) (checkin.Result, error)
}

func New(log *slog.Logger, protocol CheckInPerformer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.checkin.checkIn.New"

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

		var req CheckInRequest

		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err = validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("invalid request", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ValidationError(validateErr))
				return
			}
		}

		payload, err := qr.Decode(req.Code)
		if err != nil {
			log.Error("failed to decode code", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid code"))
			return
		}

		method := models.MethodQR
		if req.Method == string(models.MethodManual) {
			method = models.MethodManual
		}

		result, err := protocol.CheckIn(r.Context(), payload, eventID, req.Actor, method)
		if err != nil {
			log.Error("check-in failed", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("check-in failed"))
			return
		}

		log.Info("check-in attempt processed", slog.String("kind", string(result.Kind)))

		switch result.Kind {
		case checkin.BookingNotFound:
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, CheckInResponse{
				Response: response.Error("booking not found"),
				Result:   result,
			})
		case checkin.EventMismatch, checkin.BookingCancelled:
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, CheckInResponse{
				Response: response.Error(string(result.Kind)),
				Result:   result,
			})
		default:
			render.JSON(w, r, CheckInResponse{
				Response: response.OK(),
				Result:   result,
			})
		}
	}
}
