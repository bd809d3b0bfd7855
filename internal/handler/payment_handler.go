package handler

import (
	"log/slog"
	"net/http"

	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type PaymentHandler struct {
	payments service.PaymentService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewPaymentHandler(payments service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the payment route on a router rooted at /rides.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireActor(models.RoleRider)).Post("/{id}/payment", h.ProcessPayment)
}

// POST /v1/rides/{id}/payment
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req models.CreatePaymentRequest
	if err := decode(r, h.validate, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	payment, err := h.payments.ProcessPayment(r.Context(), chi.URLParam(r, "id"), a.ID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Created(w, payment.ToResponse())
}
