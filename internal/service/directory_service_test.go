package service

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/logging"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

func TestDirectoryAvailableRides(t *testing.T) {
	f := newDispatchFixture(t)
	f.addUser(t, "driver-1", models.RoleDriver)
	dir := NewRideDirectory(f.gateway, f.cache, logging.Discard())
	ctx := context.Background()

	first := f.request(t, "rider-1")
	second := f.request(t, "rider-2")

	rides, err := dir.GetAvailable(ctx)
	if err != nil {
		t.Fatalf("GetAvailable() error = %v", err)
	}
	if len(rides) != 2 || rides[0].ID != first.ID || rides[1].ID != second.ID {
		t.Fatalf("GetAvailable() = %v", rides)
	}
	if !f.cache.cached {
		t.Error("GetAvailable() did not populate the cache")
	}

	if _, err := f.svc.AcceptRide(ctx, first.ID, "driver-1"); err != nil {
		t.Fatalf("AcceptRide() error = %v", err)
	}

	rides, _ = dir.GetAvailable(ctx)
	if len(rides) != 1 || rides[0].ID != second.ID {
		t.Errorf("after accept GetAvailable() = %v, want only %s", rides, second.ID)
	}
}

// interleavedRides runs during once, after the available rides have been
// read but before they are returned.
type interleavedRides struct {
	repository.RideQueries
	during func()
}

func (r *interleavedRides) FindRidesByStatus(ctx context.Context, status models.RideStatus) ([]*models.Ride, error) {
	rides, err := r.RideQueries.FindRidesByStatus(ctx, status)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return rides, err
}

func TestDirectoryDoesNotCacheSnapshotOlderThanRequest(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()
	f.request(t, "rider-1")

	var late *models.Ride
	rides := &interleavedRides{RideQueries: f.gateway, during: func() {
		late = f.request(t, "rider-2")
	}}
	dir := NewRideDirectory(rides, f.cache, logging.Discard())

	stale, err := dir.GetAvailable(ctx)
	if err != nil {
		t.Fatalf("GetAvailable() error = %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("first GetAvailable() returned %d rides, want 1", len(stale))
	}
	if f.cache.cached {
		t.Fatal("snapshot read before the request was cached after its invalidation")
	}

	fresh, _ := dir.GetAvailable(ctx)
	if len(fresh) != 2 || fresh[1].ID != late.ID {
		t.Errorf("second GetAvailable() = %v, want both rides", fresh)
	}
}

func TestDirectoryCacheFailureFallsBack(t *testing.T) {
	f := newDispatchFixture(t)
	f.cache.getErr = errors.New("redis: connection refused")
	dir := NewRideDirectory(f.gateway, f.cache, logging.Discard())

	f.request(t, "rider-1")
	rides, err := dir.GetAvailable(context.Background())
	if err != nil {
		t.Fatalf("GetAvailable() error = %v", err)
	}
	if len(rides) != 1 {
		t.Errorf("GetAvailable() returned %d rides, want 1", len(rides))
	}
}

func TestDirectoryLookups(t *testing.T) {
	f := newDispatchFixture(t)
	f.addUser(t, "driver-1", models.RoleDriver)
	dir := NewRideDirectory(f.gateway, nil, logging.Discard())
	ctx := context.Background()

	ride := f.request(t, "rider-1")
	f.request(t, "rider-2")
	f.svc.AcceptRide(ctx, ride.ID, "driver-1")

	got, err := dir.GetByID(ctx, ride.ID)
	if err != nil || got.ID != ride.ID {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	_, err = dir.GetByID(ctx, "missing")
	assertKind(t, err, apperrors.ErrNotFound)

	for _, id := range []string{"rider-1", "driver-1"} {
		rides, err := dir.GetForParticipant(ctx, id)
		if err != nil || len(rides) != 1 || rides[0].ID != ride.ID {
			t.Errorf("GetForParticipant(%s) = %v, %v", id, rides, err)
		}
	}

	accepted, err := dir.ListByStatus(ctx, "accepted")
	if err != nil || len(accepted) != 1 {
		t.Errorf("ListByStatus(accepted) = %v, %v", accepted, err)
	}

	_, err = dir.ListByStatus(ctx, "teleported")
	assertKind(t, err, apperrors.ErrValidation)
}
