package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// userRow is the flat users table. Profile columns are null for the other role.
type userRow struct {
	ID             string         `db:"id"`
	Role           string         `db:"role"`
	Phone          string         `db:"phone"`
	Name           string         `db:"name"`
	Email          *string        `db:"email"`
	Rating         float64        `db:"rating"`
	RideCount      int            `db:"ride_count"`
	PaymentMethods pq.StringArray `db:"payment_methods"`
	LicenseNumber  *string        `db:"license_number"`
	VehiclePlate   *string        `db:"vehicle_plate"`
	VehicleType    *string        `db:"vehicle_type"`
	VehicleModel   *string        `db:"vehicle_model"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

const userColumns = `id, role, phone, name, email, rating, ride_count, payment_methods,
	license_number, vehicle_plate, vehicle_type, vehicle_model, created_at, updated_at`

func toUserRow(u *models.User) *userRow {
	row := &userRow{
		ID:        u.ID,
		Role:      string(u.Role),
		Phone:     u.Phone,
		Name:      u.Name,
		Email:     u.Email,
		Rating:    u.Rating,
		RideCount: u.RideCount,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}

	switch u.Role {
	case models.RoleRider:
		if u.Rider != nil {
			row.PaymentMethods = pq.StringArray(u.Rider.PaymentMethods)
		}
	case models.RoleDriver:
		if u.Driver != nil {
			row.LicenseNumber = &u.Driver.LicenseNumber
			row.VehiclePlate = &u.Driver.Vehicle.PlateNumber
			row.VehicleType = &u.Driver.Vehicle.Type
			row.VehicleModel = &u.Driver.Vehicle.Model
		}
	}
	return row
}

func (r *userRow) toModel() *models.User {
	u := &models.User{
		ID:        r.ID,
		Role:      models.Role(r.Role),
		Phone:     r.Phone,
		Name:      r.Name,
		Email:     r.Email,
		Rating:    r.Rating,
		RideCount: r.RideCount,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	switch u.Role {
	case models.RoleRider:
		u.Rider = &models.RiderProfile{PaymentMethods: []string(r.PaymentMethods)}
	case models.RoleDriver:
		u.Driver = &models.DriverProfile{
			LicenseNumber: deref(r.LicenseNumber),
			Vehicle: models.Vehicle{
				PlateNumber: deref(r.VehiclePlate),
				Type:        deref(r.VehicleType),
				Model:       deref(r.VehicleModel),
			},
		}
	}
	return u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (q *pgQueries) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	row := toUserRow(user)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := q.db.ExecContext(ctx, query,
		row.ID, row.Role, row.Phone, row.Name, row.Email, row.Rating, row.RideCount, row.PaymentMethods,
		row.LicenseNumber, row.VehiclePlate, row.VehicleType, row.VehicleModel, row.CreatedAt, row.UpdatedAt)
	return translateError(err)
}

func (q *pgQueries) FindUser(ctx context.Context, id string) (*models.User, error) {
	return q.findUserBy(ctx, "id", id)
}

func (q *pgQueries) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return q.findUserBy(ctx, "phone", phone)
}

func (q *pgQueries) findUserBy(ctx context.Context, column, value string) (*models.User, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	err := q.db.GetContext(ctx, &row, query, value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (q *pgQueries) IncrementRideCount(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `UPDATE users SET ride_count = ride_count + 1, updated_at = $1 WHERE id = $2`
	return rowsAffected(q.db.ExecContext(ctx, query, at, userID))
}

// RefreshDriverRating recomputes the driver's average over rated rides.
func (q *pgQueries) RefreshDriverRating(ctx context.Context, driverID string, at time.Time) error {
	query := `
		UPDATE users
		SET rating = COALESCE((
				SELECT ROUND(AVG(rating)::numeric, 2) FROM rides
				WHERE driver_id = $1 AND rating IS NOT NULL
			), rating),
			updated_at = $2
		WHERE id = $1
	`
	_, err := q.db.ExecContext(ctx, query, driverID, at)
	return err
}
