package service

import (
	"context"
	"log/slog"

	"github.com/aditya/go-dispatch/internal/cache"
	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

// RideDirectory is the read side over rides. It never mutates anything.
type RideDirectory interface {
	GetByID(ctx context.Context, rideID string) (*models.Ride, error)
	GetAvailable(ctx context.Context) ([]*models.Ride, error)
	GetForParticipant(ctx context.Context, userID string) ([]*models.Ride, error)
	ListByStatus(ctx context.Context, status string) ([]*models.Ride, error)
}

type rideDirectory struct {
	rides          repository.RideQueries
	availableCache cache.AvailableRidesCache
	logger         *slog.Logger
}

func NewRideDirectory(rides repository.RideQueries, availableCache cache.AvailableRidesCache, logger *slog.Logger) RideDirectory {
	return &rideDirectory{
		rides:          rides,
		availableCache: availableCache,
		logger:         logger,
	}
}

func (d *rideDirectory) GetByID(ctx context.Context, rideID string) (*models.Ride, error) {
	ride, err := d.rides.FindRide(ctx, rideID)
	if err != nil {
		return nil, mapError(d.logger, "get_ride", err)
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}
	return ride, nil
}

// GetAvailable lists rides still waiting for a driver, oldest first. The
// cache is a short-lived snapshot; any cache failure falls back to storage.
func (d *rideDirectory) GetAvailable(ctx context.Context) ([]*models.Ride, error) {
	var (
		version  int64
		canCache bool
	)
	if d.availableCache != nil {
		rides, hit, err := d.availableCache.Get(ctx)
		if err != nil {
			d.logger.Warn("available rides cache read failed", "error", err)
		} else if hit {
			return rides, nil
		}

		// Taken before the query so a write that lands in between keeps
		// this snapshot out of the cache.
		version, err = d.availableCache.Version(ctx)
		canCache = err == nil
	}

	rides, err := d.rides.FindRidesByStatus(ctx, models.RideStatusRequested)
	if err != nil {
		return nil, mapError(d.logger, "available_rides", err)
	}

	if canCache {
		if err := d.availableCache.Set(ctx, version, rides); err != nil {
			d.logger.Warn("available rides cache write failed", "error", err)
		}
	}
	return rides, nil
}

func (d *rideDirectory) GetForParticipant(ctx context.Context, userID string) ([]*models.Ride, error) {
	rides, err := d.rides.FindRidesByParticipant(ctx, userID)
	if err != nil {
		return nil, mapError(d.logger, "participant_rides", err)
	}
	return rides, nil
}

func (d *rideDirectory) ListByStatus(ctx context.Context, status string) ([]*models.Ride, error) {
	if !models.IsValidRideStatus(status) {
		return nil, apperrors.BadRequest("unknown ride status: " + status)
	}
	rides, err := d.rides.FindRidesByStatus(ctx, models.RideStatus(status))
	if err != nil {
		return nil, mapError(d.logger, "rides_by_status", err)
	}
	return rides, nil
}
