package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
)

func (q *pgQueries) InsertAvailability(ctx context.Context, a *models.Availability) error {
	query := `
		INSERT INTO driver_availability (driver_id, is_available, current_ride_id, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.db.ExecContext(ctx, query, a.DriverID, a.IsAvailable, a.CurrentRideID, a.UpdatedAt)
	return translateError(err)
}

func (q *pgQueries) FindAvailability(ctx context.Context, driverID string) (*models.Availability, error) {
	var a models.Availability
	query := `
		SELECT driver_id, is_available, current_ride_id, updated_at
		FROM driver_availability WHERE driver_id = $1
	`
	err := q.db.GetContext(ctx, &a, query, driverID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// BindDriver claims a free driver for rideID. Zero rows means the driver was
// not free (or does not exist).
func (q *pgQueries) BindDriver(ctx context.Context, driverID, rideID string, at time.Time) (int64, error) {
	query := `
		UPDATE driver_availability
		SET is_available = FALSE, current_ride_id = $1, updated_at = $2
		WHERE driver_id = $3 AND is_available
	`
	return rowsAffected(q.db.ExecContext(ctx, query, rideID, at, driverID))
}

func (q *pgQueries) ReleaseDriver(ctx context.Context, driverID string, at time.Time) (int64, error) {
	query := `
		UPDATE driver_availability
		SET is_available = TRUE, current_ride_id = NULL, updated_at = $1
		WHERE driver_id = $2
	`
	return rowsAffected(q.db.ExecContext(ctx, query, at, driverID))
}
