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

type UserHandler struct {
	users     service.UserService
	directory service.RideDirectory
	payments  service.PaymentService
	auth      *middleware.Authenticator
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewUserHandler(
	users service.UserService,
	directory service.RideDirectory,
	payments service.PaymentService,
	auth *middleware.Authenticator,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		users:     users,
		directory: directory,
		payments:  payments,
		auth:      auth,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/riders", h.RegisterRider)
	r.Post("/drivers", h.RegisterDriver)

	r.Route("/users/{id}", func(r chi.Router) {
		r.Use(middleware.RequireActor())
		r.Get("/", h.GetUser)
		r.Get("/rides", h.GetUserRides)
		r.Get("/payments", h.GetUserPayments)
	})
}

// POST /v1/riders
func (h *UserHandler) RegisterRider(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRiderRequest
	if err := decode(r, h.validate, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	user, err := h.users.RegisterRider(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.created(w, user)
}

// POST /v1/drivers
func (h *UserHandler) RegisterDriver(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDriverRequest
	if err := decode(r, h.validate, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	user, err := h.users.RegisterDriver(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.created(w, user)
}

func (h *UserHandler) created(w http.ResponseWriter, user *models.User) {
	resp := user.ToResponse()
	token, err := h.auth.IssueToken(user.ID, user.Role)
	if err != nil {
		// The account exists; the client can still authenticate later.
		h.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
	}
	resp.Token = token
	utils.Created(w, resp)
}

// GET /v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, user.ToResponse())
}

// GET /v1/users/{id}/rides
func (h *UserHandler) GetUserRides(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := selfOnly(r, userID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	rides, err := h.directory.GetForParticipant(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	utils.Success(w, http.StatusOK, rideResponses(rides))
}

// GET /v1/users/{id}/payments
func (h *UserHandler) GetUserPayments(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := selfOnly(r, userID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	payments, err := h.payments.GetPaymentHistory(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	resp := make([]*models.PaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = p.ToResponse()
	}
	utils.Success(w, http.StatusOK, resp)
}
