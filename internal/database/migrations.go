package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              TEXT PRIMARY KEY,
		role            TEXT NOT NULL CHECK (role IN ('rider', 'driver')),
		phone           TEXT NOT NULL UNIQUE,
		name            TEXT NOT NULL,
		email           TEXT,
		rating          DOUBLE PRECISION NOT NULL DEFAULT 5.0,
		ride_count      INTEGER NOT NULL DEFAULT 0,
		payment_methods TEXT[],
		license_number  TEXT,
		vehicle_plate   TEXT,
		vehicle_type    TEXT,
		vehicle_model   TEXT,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rides (
		id             TEXT PRIMARY KEY,
		rider_id       TEXT NOT NULL,
		driver_id      TEXT,
		pickup_address TEXT NOT NULL,
		pickup_lat     DOUBLE PRECISION,
		pickup_lng     DOUBLE PRECISION,
		drop_address   TEXT NOT NULL,
		drop_lat       DOUBLE PRECISION,
		drop_lng       DOUBLE PRECISION,
		status         TEXT NOT NULL CHECK (status IN ('requested', 'accepted', 'started', 'completed', 'cancelled')),
		fare           DOUBLE PRECISION NOT NULL,
		estimated_minutes INTEGER NOT NULL DEFAULT 0,
		rating         INTEGER CHECK (rating BETWEEN 1 AND 5),
		payment_status TEXT NOT NULL DEFAULT 'pending',
		cancelled_by   TEXT,
		requested_at   TIMESTAMPTZ NOT NULL,
		accepted_at    TIMESTAMPTZ,
		started_at     TIMESTAMPTZ,
		completed_at   TIMESTAMPTZ,
		cancelled_at   TIMESTAMPTZ,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE rides ADD COLUMN IF NOT EXISTS estimated_minutes INTEGER NOT NULL DEFAULT 0`,
	`CREATE INDEX IF NOT EXISTS idx_rides_status ON rides (status, requested_at)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_rider ON rides (rider_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rides_driver ON rides (driver_id)`,
	`CREATE TABLE IF NOT EXISTS driver_availability (
		driver_id       TEXT PRIMARY KEY REFERENCES users (id),
		is_available    BOOLEAN NOT NULL DEFAULT TRUE,
		current_ride_id TEXT REFERENCES rides (id),
		updated_at      TIMESTAMPTZ NOT NULL,
		CHECK (is_available = (current_ride_id IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id         TEXT PRIMARY KEY,
		ride_id    TEXT NOT NULL REFERENCES rides (id),
		user_id    TEXT NOT NULL,
		driver_id  TEXT NOT NULL,
		amount     DOUBLE PRECISION NOT NULL,
		method     TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_ride ON payments (ride_id)`,
}

// Migrate creates the tables if they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
