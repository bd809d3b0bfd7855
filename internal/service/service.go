package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/observability"
)

// Clock is the time source for lifecycle timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// timestamps are stored at microsecond precision so they survive a Postgres round trip.
func now(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Microsecond)
}

// stampFor never goes behind the ride's last recorded change, so lifecycle
// timestamps stay ordered even if the clock steps backwards.
func stampFor(c Clock, ride *models.Ride) time.Time {
	t := now(c)
	if t.Before(ride.UpdatedAt) {
		return ride.UpdatedAt
	}
	if t.Before(ride.RequestedAt) {
		return ride.RequestedAt
	}
	return t
}

// mapError passes domain errors through and turns anything else into a
// retryable storage error.
func mapError(logger *slog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAPIError(err); ok {
		return err
	}
	observability.StorageErrors.WithLabelValues(op).Inc()
	logger.Error("storage failure", "op", op, "error", err)
	return apperrors.Storage(err)
}

func publish(ctx context.Context, logger *slog.Logger, p events.Publisher, evt events.RideEvent) {
	if p == nil {
		return
	}
	// The change is already committed; a client hanging up must not drop the event.
	if err := p.Publish(context.WithoutCancel(ctx), evt); err != nil {
		observability.EventPublishFailures.WithLabelValues(string(evt.Type)).Inc()
		logger.Warn("failed to publish ride event", "type", evt.Type, "ride_id", evt.RideID, "error", err)
	}
}
