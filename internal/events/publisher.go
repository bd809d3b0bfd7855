package events

import (
	"context"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
)

type Type string

const (
	RideRequested Type = "ride.requested"
	RideAccepted  Type = "ride.accepted"
	RideStarted   Type = "ride.started"
	RideCompleted Type = "ride.completed"
	RideCancelled Type = "ride.cancelled"
	RideRated     Type = "ride.rated"
	RidePaid      Type = "ride.paid"
)

// RideEvent is emitted after a lifecycle change has been committed.
type RideEvent struct {
	Type       Type              `json:"type"`
	RideID     string            `json:"ride_id"`
	RiderID    string            `json:"rider_id"`
	DriverID   *string           `json:"driver_id,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
	Status     models.RideStatus `json:"status"`
	Fare       float64           `json:"fare"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewRideEvent(t Type, ride *models.Ride, actorID string, at time.Time) RideEvent {
	return RideEvent{
		Type:       t,
		RideID:     ride.ID,
		RiderID:    ride.RiderID,
		DriverID:   ride.DriverID,
		ActorID:    actorID,
		Status:     ride.Status,
		Fare:       ride.Fare,
		OccurredAt: at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt RideEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt RideEvent) error { return nil }
func (NopPublisher) Close() error                                     { return nil }
