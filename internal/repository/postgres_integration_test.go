//go:build integration

package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aditya/go-dispatch/internal/database"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func newPostgresGateway(t *testing.T) Gateway {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewPostgresGateway(db)
}

func seedDriver(t *testing.T, g Gateway) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	driver := &models.User{
		ID:        id,
		Role:      models.RoleDriver,
		Phone:     id[:15],
		Name:      "Integration Driver",
		Rating:    5,
		Driver:    &models.DriverProfile{LicenseNumber: "DL12345", Vehicle: models.Vehicle{PlateNumber: "KA01AB1234", Type: models.VehicleTypeSedan, Model: "Dzire"}},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if err := g.InsertUser(ctx, driver); err != nil {
		t.Fatalf("InsertUser() error = %v", err)
	}
	if err := g.InsertAvailability(ctx, &models.Availability{DriverID: id, IsAvailable: true, UpdatedAt: t0}); err != nil {
		t.Fatalf("InsertAvailability() error = %v", err)
	}
	return id
}

func TestPostgresRideRoundTrip(t *testing.T) {
	g := newPostgresGateway(t)
	ctx := context.Background()
	id := uuid.NewString()
	ride := seedRide(t, g, id, t0)

	got, err := g.FindRide(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("FindRide() = %v, %v", got, err)
	}
	if got.Status != models.RideStatusRequested || got.Fare != ride.Fare || !got.RequestedAt.Equal(t0) || got.DriverID != nil {
		t.Errorf("unexpected ride %+v", got)
	}

	missing, err := g.FindRide(ctx, uuid.NewString())
	if err != nil || missing != nil {
		t.Errorf("FindRide(missing) = %v, %v; want nil, nil", missing, err)
	}
	if err := g.InsertRide(ctx, &models.Ride{ID: id, RiderID: "rider-1", PickupAddress: "x", DropAddress: "y",
		Status: models.RideStatusRequested, PaymentStatus: models.PaymentStatusPending, RequestedAt: t0}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate InsertRide() error = %v, want ErrDuplicate", err)
	}
}

func TestPostgresConditionalUpdates(t *testing.T) {
	g := newPostgresGateway(t)
	ctx := context.Background()
	rideID := uuid.NewString()
	seedRide(t, g, rideID, t0)
	driverID := seedDriver(t, g)

	if n, err := g.BindDriver(ctx, driverID, rideID, t0); err != nil || n != 1 {
		t.Fatalf("BindDriver() = %d, %v; want 1", n, err)
	}
	if n, _ := g.BindDriver(ctx, driverID, rideID, t0); n != 0 {
		t.Fatalf("second BindDriver() = %d, want 0", n)
	}

	accept := RideTransition{
		RideID:   rideID,
		From:     []models.RideStatus{models.RideStatusRequested},
		To:       models.RideStatusAccepted,
		At:       t0,
		DriverID: &driverID,
	}
	if n, err := g.TransitionRide(ctx, accept); err != nil || n != 1 {
		t.Fatalf("TransitionRide(accept) = %d, %v; want 1", n, err)
	}
	if n, _ := g.TransitionRide(ctx, accept); n != 0 {
		t.Fatalf("repeated TransitionRide(accept) = %d, want 0", n)
	}

	rider := "rider-1"
	n, err := g.TransitionRide(ctx, RideTransition{
		RideID:  rideID,
		From:    []models.RideStatus{models.RideStatusRequested, models.RideStatusAccepted},
		To:      models.RideStatusCancelled,
		At:      t0,
		ActorID: &rider,
	})
	if err != nil || n != 1 {
		t.Fatalf("TransitionRide(cancel) = %d, %v; want 1", n, err)
	}

	got, _ := g.FindRide(ctx, rideID)
	if got.Status != models.RideStatusCancelled || !got.IsDriver(driverID) {
		t.Errorf("cancel dropped driver_id: %+v", got)
	}
	if got.CancelledBy == nil || *got.CancelledBy != rider || got.AcceptedAt == nil || got.CancelledAt == nil {
		t.Errorf("unexpected stamps on cancelled ride %+v", got)
	}

	if n, _ := g.ReleaseDriver(ctx, driverID, t0); n != 1 {
		t.Fatalf("ReleaseDriver() = %d, want 1", n)
	}
	a, _ := g.FindAvailability(ctx, driverID)
	if !a.IsAvailable || a.CurrentRideID != nil {
		t.Errorf("driver not released: %+v", a)
	}
}

func TestPostgresWithTxRollsBack(t *testing.T) {
	g := newPostgresGateway(t)
	ctx := context.Background()
	rideID := uuid.NewString()
	seedRide(t, g, rideID, t0)
	driverID := seedDriver(t, g)

	boom := errors.New("boom")
	err := g.WithTx(ctx, func(q Queries) error {
		if _, err := q.FindRideForUpdate(ctx, rideID); err != nil {
			return err
		}
		if _, err := q.BindDriver(ctx, driverID, rideID, t0); err != nil {
			return err
		}
		if _, err := q.TransitionRide(ctx, RideTransition{
			RideID:   rideID,
			From:     []models.RideStatus{models.RideStatusRequested},
			To:       models.RideStatusAccepted,
			At:       t0,
			DriverID: &driverID,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	got, _ := g.FindRide(ctx, rideID)
	if got.Status != models.RideStatusRequested || got.DriverID != nil {
		t.Errorf("ride changed after rollback: %+v", got)
	}
	a, _ := g.FindAvailability(ctx, driverID)
	if !a.IsAvailable {
		t.Errorf("driver bound after rollback: %+v", a)
	}
}
