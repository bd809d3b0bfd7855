package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/middleware"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/service"
	"github.com/go-chi/chi/v5"
)

const heartbeatEvery = 15 * time.Second

// SSEHandler streams a ride's status to its participants until the ride is
// completed or cancelled. It only reads through the directory.
type SSEHandler struct {
	directory    service.RideDirectory
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewSSEHandler(directory service.RideDirectory, pollInterval time.Duration, logger *slog.Logger) *SSEHandler {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &SSEHandler{
		directory:    directory,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// RegisterRoutes mounts the tracking route on a router rooted at /rides.
func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireActor()).Get("/{id}/track", h.TrackRide)
}

// GET /v1/rides/{id}/track
func (h *SSEHandler) TrackRide(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	rideID := chi.URLParam(r, "id")
	ride, err := h.directory.GetByID(r.Context(), rideID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if !ride.IsParticipant(a.ID) {
		handleError(w, h.logger, apperrors.NotAuthorized("only the ride's participants can track it"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handleError(w, h.logger, apperrors.InternalError("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.writeStatus(w, ride)
	flusher.Flush()
	if ride.IsTerminal() {
		return
	}

	ctx := r.Context()
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	last := ride
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		case <-poll.C:
			current, err := h.directory.GetByID(ctx, rideID)
			if err != nil {
				// Transient read failures just skip a tick.
				h.logger.Warn("ride tracking poll failed", "ride_id", rideID, "error", err)
				continue
			}
			if !changed(last, current) {
				continue
			}
			last = current
			h.writeStatus(w, current)
			flusher.Flush()
			if current.IsTerminal() {
				return
			}
		}
	}
}

func (h *SSEHandler) writeStatus(w http.ResponseWriter, ride *models.Ride) {
	data, err := json.Marshal(ride.ToResponse())
	if err != nil {
		h.logger.Error("failed to encode ride", "ride_id", ride.ID, "error", err)
		return
	}
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
}

func changed(prev, next *models.Ride) bool {
	return prev.Status != next.Status || !prev.UpdatedAt.Equal(next.UpdatedAt)
}
