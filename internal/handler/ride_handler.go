package handler

import (
	"context"
	"log/slog"
	"net/http"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type RideHandler struct {
	dispatch  service.DispatchService
	directory service.RideDirectory
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewRideHandler(dispatch service.DispatchService, directory service.RideDirectory, logger *slog.Logger) *RideHandler {
	return &RideHandler{
		dispatch:  dispatch,
		directory: directory,
		validate:  validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes mounts the ride routes on a router rooted at /rides.
func (h *RideHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor())

		r.With(middleware.RequireActor(models.RoleRider)).Post("/", h.RequestRide)
		r.Get("/", h.ListRides)
		r.Get("/available", h.AvailableRides)
		r.Get("/{id}", h.GetRide)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor(models.RoleDriver))
			r.Post("/{id}/accept", h.AcceptRide)
			r.Post("/{id}/start", h.StartRide)
			r.Post("/{id}/complete", h.CompleteRide)
		})

		r.Post("/{id}/cancel", h.CancelRide)
		r.With(middleware.RequireActor(models.RoleRider)).Post("/{id}/rate", h.RateRide)
	})
}

// POST /v1/rides
func (h *RideHandler) RequestRide(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req models.CreateRideRequest
	if err := decode(r, h.validate, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}
	req.RiderID = a.ID

	ride, err := h.dispatch.RequestRide(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Created(w, ride.ToResponse())
}

// GET /v1/rides?status=requested
func (h *RideHandler) ListRides(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		handleError(w, h.logger, apperrors.BadRequest("status query parameter is required"))
		return
	}

	rides, err := h.directory.ListByStatus(r.Context(), status)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, rideResponses(rides))
}

// GET /v1/rides/available
func (h *RideHandler) AvailableRides(w http.ResponseWriter, r *http.Request) {
	rides, err := h.directory.GetAvailable(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, rideResponses(rides))
}

// GET /v1/rides/{id}
func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := h.directory.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, ride.ToResponse())
}

// POST /v1/rides/{id}/accept
func (h *RideHandler) AcceptRide(w http.ResponseWriter, r *http.Request) {
	h.actOn(w, r, h.dispatch.AcceptRide)
}

// POST /v1/rides/{id}/start
func (h *RideHandler) StartRide(w http.ResponseWriter, r *http.Request) {
	h.actOn(w, r, h.dispatch.StartRide)
}

// POST /v1/rides/{id}/complete
func (h *RideHandler) CompleteRide(w http.ResponseWriter, r *http.Request) {
	h.actOn(w, r, h.dispatch.CompleteRide)
}

// POST /v1/rides/{id}/cancel
func (h *RideHandler) CancelRide(w http.ResponseWriter, r *http.Request) {
	h.actOn(w, r, h.dispatch.CancelRide)
}

// POST /v1/rides/{id}/rate
func (h *RideHandler) RateRide(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req models.RateRideRequest
	if err := decode(r, h.validate, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	rideID := chi.URLParam(r, "id")
	ride, err := h.directory.GetByID(r.Context(), rideID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if ride.RiderID != a.ID {
		handleError(w, h.logger, apperrors.NotAuthorized("only the rider can rate this ride"))
		return
	}

	rated, err := h.dispatch.RateRide(r.Context(), rideID, req.Rating)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, rated.ToResponse())
}

// actOn runs a lifecycle operation on the URL's ride as the calling actor.
func (h *RideHandler) actOn(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, rideID, actorID string) (*models.Ride, error)) {
	a, err := actor(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	ride, err := op(r.Context(), chi.URLParam(r, "id"), a.ID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, ride.ToResponse())
}
