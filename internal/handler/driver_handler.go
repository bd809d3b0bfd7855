package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-chi/chi/v5"
)

type DriverHandler struct {
	dispatch service.DispatchService
	payments service.PaymentService
	logger   *slog.Logger
}

func NewDriverHandler(dispatch service.DispatchService, payments service.PaymentService, logger *slog.Logger) *DriverHandler {
	return &DriverHandler{
		dispatch: dispatch,
		payments: payments,
		logger:   logger,
	}
}

func (h *DriverHandler) RegisterRoutes(r chi.Router) {
	r.Route("/drivers/{id}", func(r chi.Router) {
		r.Use(middleware.RequireActor())
		r.Get("/availability", h.GetAvailability)
		r.Get("/earnings", h.GetEarnings)
	})
}

// GET /v1/drivers/{id}/availability
func (h *DriverHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.dispatch.DriverAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, availability)
}

// GET /v1/drivers/{id}/earnings?year=2024&month=5
func (h *DriverHandler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	driverID := chi.URLParam(r, "id")
	if err := selfOnly(r, driverID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	year, err := intQuery(r, "year")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	month, err := intQuery(r, "month")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	earnings, err := h.payments.GetEarnings(r.Context(), driverID, year, month)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, earnings)
}

// intQuery returns 0 when the parameter is absent.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.BadRequest(name + " must be a non-negative integer")
	}
	return v, nil
}
