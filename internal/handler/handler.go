package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-playground/validator/v10"
)

// decode reads a JSON body into dst and runs struct validation.
func decode(r *http.Request, validate *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	return nil
}

// actor returns the authenticated caller. Routes are mounted behind
// middleware.RequireActor, so a missing actor is a wiring bug.
func actor(r *http.Request) (middleware.Actor, error) {
	a, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return middleware.Actor{}, apperrors.Unauthorized("authentication required")
	}
	return a, nil
}

// selfOnly allows a caller to read only their own records.
func selfOnly(r *http.Request, userID string) error {
	a, err := actor(r)
	if err != nil {
		return err
	}
	if a.ID != userID {
		return apperrors.NotAuthorized("you can only view your own records")
	}
	return nil
}

func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if apiErr, ok := apperrors.AsAPIError(err); ok {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed", "code", apiErr.Code, "error", err)
		}
		utils.Error(w, apiErr)
		return
	}

	logger.Error("unhandled error", "error", err)
	utils.InternalError(w, "internal server error")
}

func rideResponses(rides []*models.Ride) []*models.RideResponse {
	out := make([]*models.RideResponse, len(rides))
	for i, ride := range rides {
		out[i] = ride.ToResponse()
	}
	return out
}
