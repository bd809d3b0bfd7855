package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const rideColumns = `id, rider_id, driver_id, pickup_address, pickup_lat, pickup_lng,
	drop_address, drop_lat, drop_lng, status, fare, estimated_minutes, rating, payment_status, cancelled_by,
	requested_at, accepted_at, started_at, completed_at, cancelled_at, updated_at`

// Each transition stamps exactly one column.
var transitionColumns = map[models.RideStatus]string{
	models.RideStatusAccepted:  "accepted_at",
	models.RideStatusStarted:   "started_at",
	models.RideStatusCompleted: "completed_at",
	models.RideStatusCancelled: "cancelled_at",
}

func (q *pgQueries) InsertRide(ctx context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	ride.UpdatedAt = ride.RequestedAt

	query := `
		INSERT INTO rides (id, rider_id, pickup_address, pickup_lat, pickup_lng,
			drop_address, drop_lat, drop_lng, status, fare, estimated_minutes, payment_status, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := q.db.ExecContext(ctx, query,
		ride.ID, ride.RiderID, ride.PickupAddress, ride.PickupLat, ride.PickupLng,
		ride.DropAddress, ride.DropLat, ride.DropLng, ride.Status, ride.Fare,
		ride.EstimatedMinutes, ride.PaymentStatus, ride.RequestedAt, ride.UpdatedAt)
	return translateError(err)
}

func (q *pgQueries) FindRide(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	err := q.db.GetContext(ctx, &ride, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// FindRideForUpdate locks the ride row until the surrounding transaction ends.
func (q *pgQueries) FindRideForUpdate(ctx context.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	err := q.db.GetContext(ctx, &ride, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

func (q *pgQueries) FindRidesByStatus(ctx context.Context, status models.RideStatus) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1 ORDER BY requested_at ASC`
	err := q.db.SelectContext(ctx, &rides, query, status)
	return rides, err
}

func (q *pgQueries) FindRidesByParticipant(ctx context.Context, userID string) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE rider_id = $1 OR driver_id = $1
		ORDER BY requested_at DESC
	`
	err := q.db.SelectContext(ctx, &rides, query, userID)
	return rides, err
}

func (q *pgQueries) TransitionRide(ctx context.Context, t RideTransition) (int64, error) {
	column, ok := transitionColumns[t.To]
	if !ok {
		return 0, fmt.Errorf("no transition into status %q", t.To)
	}

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = $1, %s = $2, updated_at = $2,
			driver_id = COALESCE($3, driver_id),
			cancelled_by = COALESCE($4, cancelled_by)
		WHERE id = $5 AND status = ANY($6)
	`, column)
	return rowsAffected(q.db.ExecContext(ctx, query,
		t.To, t.At, t.DriverID, t.ActorID, t.RideID, pq.Array(statusStrings(t.From))))
}

func (q *pgQueries) SetRideRating(ctx context.Context, rideID string, rating int, at time.Time) (int64, error) {
	query := `
		UPDATE rides SET rating = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND rating IS NULL
	`
	return rowsAffected(q.db.ExecContext(ctx, query, rating, at, rideID, models.RideStatusCompleted))
}

func (q *pgQueries) MarkRidePaid(ctx context.Context, rideID string, at time.Time) (int64, error) {
	query := `
		UPDATE rides SET payment_status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND payment_status = $5
	`
	return rowsAffected(q.db.ExecContext(ctx, query,
		models.PaymentStatusCompleted, at, rideID, models.RideStatusCompleted, models.PaymentStatusPending))
}
