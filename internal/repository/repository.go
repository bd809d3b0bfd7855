package repository

import (
	"context"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
)

// RideTransition is a conditional status change. It applies only when the
// ride is currently in one of From; the applied count tells the caller
// whether it won.
type RideTransition struct {
	RideID   string
	From     []models.RideStatus
	To       models.RideStatus
	At       time.Time
	DriverID *string
	ActorID  *string
}

type RideQueries interface {
	InsertRide(ctx context.Context, ride *models.Ride) error
	FindRide(ctx context.Context, id string) (*models.Ride, error)
	FindRideForUpdate(ctx context.Context, id string) (*models.Ride, error)
	FindRidesByStatus(ctx context.Context, status models.RideStatus) ([]*models.Ride, error)
	FindRidesByParticipant(ctx context.Context, userID string) ([]*models.Ride, error)
	TransitionRide(ctx context.Context, t RideTransition) (int64, error)
	SetRideRating(ctx context.Context, rideID string, rating int, at time.Time) (int64, error)
	MarkRidePaid(ctx context.Context, rideID string, at time.Time) (int64, error)
}

type DriverQueries interface {
	InsertAvailability(ctx context.Context, a *models.Availability) error
	FindAvailability(ctx context.Context, driverID string) (*models.Availability, error)
	BindDriver(ctx context.Context, driverID, rideID string, at time.Time) (int64, error)
	ReleaseDriver(ctx context.Context, driverID string, at time.Time) (int64, error)
}

type UserQueries interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindUserByPhone(ctx context.Context, phone string) (*models.User, error)
	IncrementRideCount(ctx context.Context, userID string, at time.Time) (int64, error)
	RefreshDriverRating(ctx context.Context, driverID string, at time.Time) error
}

type PaymentQueries interface {
	InsertPayment(ctx context.Context, p *models.Payment) error
	FindPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error)
	SumDriverEarnings(ctx context.Context, driverID string, from, to *time.Time) (float64, int, error)
}

// Queries is everything the services read and write. Implementations are
// returned both for plain use and inside a transaction.
type Queries interface {
	RideQueries
	DriverQueries
	UserQueries
	PaymentQueries
}

// Gateway is the transactional record store.
type Gateway interface {
	Queries
	// WithTx runs fn in one transaction. A nil return commits, anything else
	// rolls back every write fn made.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}

func statusStrings(statuses []models.RideStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
