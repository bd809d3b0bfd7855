package service

import (
	"context"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

// AvailabilityTracker answers whether a driver is free and binds drivers to
// rides. It always works through the caller's queries so a bind can share a
// transaction with the ride transition it belongs to.
type AvailabilityTracker struct{}

func NewAvailabilityTracker() *AvailabilityTracker {
	return &AvailabilityTracker{}
}

// TryBind succeeds only if the driver is currently free.
func (t *AvailabilityTracker) TryBind(ctx context.Context, q repository.DriverQueries, driverID, rideID string, at time.Time) (bool, error) {
	n, err := q.BindDriver(ctx, driverID, rideID, at)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *AvailabilityTracker) Release(ctx context.Context, q repository.DriverQueries, driverID string, at time.Time) error {
	_, err := q.ReleaseDriver(ctx, driverID, at)
	return err
}

// Lookup returns nil when the driver has no availability record.
func (t *AvailabilityTracker) Lookup(ctx context.Context, q repository.DriverQueries, driverID string) (*models.Availability, error) {
	return q.FindAvailability(ctx, driverID)
}
