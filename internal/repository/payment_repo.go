package repository

import (
	"context"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
)

func (q *pgQueries) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO payments (id, ride_id, user_id, driver_id, amount, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.db.ExecContext(ctx, query,
		p.ID, p.RideID, p.UserID, p.DriverID, p.Amount, p.Method, p.Status, p.CreatedAt)
	return translateError(err)
}

// FindPaymentsByUser returns payments the user made or received, newest first.
func (q *pgQueries) FindPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	payments := []*models.Payment{}
	query := `
		SELECT id, ride_id, user_id, driver_id, amount, method, status, created_at
		FROM payments
		WHERE user_id = $1 OR driver_id = $1
		ORDER BY created_at DESC
	`
	err := q.db.SelectContext(ctx, &payments, query, userID)
	return payments, err
}

// SumDriverEarnings totals fares of completed rides, optionally within [from, to).
func (q *pgQueries) SumDriverEarnings(ctx context.Context, driverID string, from, to *time.Time) (float64, int, error) {
	var result struct {
		Total float64 `db:"total"`
		Rides int     `db:"rides"`
	}
	query := `
		SELECT COALESCE(SUM(fare), 0) AS total, COUNT(*) AS rides
		FROM rides
		WHERE driver_id = $1 AND status = $2
			AND ($3::timestamptz IS NULL OR completed_at >= $3)
			AND ($4::timestamptz IS NULL OR completed_at < $4)
	`
	err := q.db.GetContext(ctx, &result, query, driverID, models.RideStatusCompleted, from, to)
	return result.Total, result.Rides, err
}
