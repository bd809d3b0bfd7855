package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func seedRide(t *testing.T, g Gateway, id string, at time.Time) *models.Ride {
	t.Helper()
	ride := &models.Ride{
		ID:            id,
		RiderID:       "rider-1",
		PickupAddress: "MG Road",
		DropAddress:   "Indiranagar",
		Status:        models.RideStatusRequested,
		Fare:          12.5,
		PaymentStatus: models.PaymentStatusPending,
		RequestedAt:   at,
	}
	if err := g.InsertRide(context.Background(), ride); err != nil {
		t.Fatalf("InsertRide() error = %v", err)
	}
	return ride
}

func TestMemoryRideRoundTrip(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedRide(t, g, "r1", t0)

	got, err := g.FindRide(ctx, "r1")
	if err != nil || got == nil {
		t.Fatalf("FindRide() = %v, %v", got, err)
	}
	if got.PickupAddress != "MG Road" || got.Status != models.RideStatusRequested {
		t.Errorf("unexpected ride %+v", got)
	}

	got.Status = models.RideStatusCancelled
	again, _ := g.FindRide(ctx, "r1")
	if again.Status != models.RideStatusRequested {
		t.Error("mutating a returned ride changed the stored record")
	}

	missing, err := g.FindRide(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("FindRide(missing) = %v, %v; want nil, nil", missing, err)
	}

	if err := g.InsertRide(ctx, &models.Ride{ID: "r1", RequestedAt: t0}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate InsertRide() error = %v, want ErrDuplicate", err)
	}
}

func TestMemoryTransitionRideIsConditional(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedRide(t, g, "r1", t0)
	driverID := "d1"

	accept := RideTransition{
		RideID:   "r1",
		From:     []models.RideStatus{models.RideStatusRequested},
		To:       models.RideStatusAccepted,
		At:       t0.Add(time.Minute),
		DriverID: &driverID,
	}

	n, err := g.TransitionRide(ctx, accept)
	if err != nil || n != 1 {
		t.Fatalf("first TransitionRide() = %d, %v; want 1, nil", n, err)
	}
	n, err = g.TransitionRide(ctx, accept)
	if err != nil || n != 0 {
		t.Fatalf("second TransitionRide() = %d, %v; want 0, nil", n, err)
	}

	ride, _ := g.FindRide(ctx, "r1")
	if !ride.IsDriver("d1") || ride.AcceptedAt == nil || !ride.AcceptedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("accept not applied: %+v", ride)
	}

	if _, err := g.TransitionRide(ctx, RideTransition{RideID: "r1", To: models.RideStatusRequested}); err == nil {
		t.Error("expected an error for a transition into requested")
	}
}

func TestMemoryBindDriver(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	if err := g.InsertAvailability(ctx, &models.Availability{DriverID: "d1", IsAvailable: true}); err != nil {
		t.Fatal(err)
	}

	if n, _ := g.BindDriver(ctx, "d1", "r1", t0); n != 1 {
		t.Fatalf("BindDriver() = %d, want 1", n)
	}
	if n, _ := g.BindDriver(ctx, "d1", "r2", t0); n != 0 {
		t.Fatalf("BindDriver() on a bound driver = %d, want 0", n)
	}
	if n, _ := g.BindDriver(ctx, "ghost", "r1", t0); n != 0 {
		t.Fatalf("BindDriver() on an unknown driver = %d, want 0", n)
	}

	a, _ := g.FindAvailability(ctx, "d1")
	if a.IsAvailable || a.CurrentRideID == nil || *a.CurrentRideID != "r1" || !a.Consistent() {
		t.Errorf("unexpected availability %+v", a)
	}

	if n, _ := g.ReleaseDriver(ctx, "d1", t0); n != 1 {
		t.Fatalf("ReleaseDriver() = %d, want 1", n)
	}
	a, _ = g.FindAvailability(ctx, "d1")
	if !a.IsAvailable || a.CurrentRideID != nil {
		t.Errorf("driver not released: %+v", a)
	}
}

func TestMemoryWithTxRollsBack(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedRide(t, g, "r1", t0)
	g.InsertAvailability(ctx, &models.Availability{DriverID: "d1", IsAvailable: true})
	g.InsertUser(ctx, &models.User{ID: "rider-1", Role: models.RoleRider, Phone: "9800000001"})

	boom := errors.New("boom")
	err := g.WithTx(ctx, func(q Queries) error {
		driverID := "d1"
		q.BindDriver(ctx, "d1", "r1", t0)
		q.TransitionRide(ctx, RideTransition{
			RideID:   "r1",
			From:     []models.RideStatus{models.RideStatusRequested},
			To:       models.RideStatusAccepted,
			At:       t0,
			DriverID: &driverID,
		})
		q.IncrementRideCount(ctx, "rider-1", t0)
		q.InsertRide(ctx, &models.Ride{ID: "r2", RequestedAt: t0})
		q.InsertPayment(ctx, &models.Payment{RideID: "r1"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	ride, _ := g.FindRide(ctx, "r1")
	if ride.Status != models.RideStatusRequested || ride.DriverID != nil || ride.AcceptedAt != nil {
		t.Errorf("ride not rolled back: %+v", ride)
	}
	if a, _ := g.FindAvailability(ctx, "d1"); !a.IsAvailable {
		t.Error("driver binding not rolled back")
	}
	if u, _ := g.FindUser(ctx, "rider-1"); u.RideCount != 0 {
		t.Errorf("ride count not rolled back: %d", u.RideCount)
	}
	if r2, _ := g.FindRide(ctx, "r2"); r2 != nil {
		t.Error("inserted ride not rolled back")
	}
	if rides, _ := g.FindRidesByStatus(ctx, models.RideStatusRequested); len(rides) != 1 {
		t.Errorf("expected 1 requested ride, got %d", len(rides))
	}
	if p, _ := g.FindPaymentsByUser(ctx, ""); len(p) != 0 {
		t.Error("payment not rolled back")
	}
}

func TestMemoryWithTxCommits(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedRide(t, g, "r1", t0)

	err := g.WithTx(ctx, func(q Queries) error {
		_, err := q.TransitionRide(ctx, RideTransition{
			RideID: "r1",
			From:   []models.RideStatus{models.RideStatusRequested},
			To:     models.RideStatusCancelled,
			At:     t0,
		})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if ride, _ := g.FindRide(ctx, "r1"); ride.Status != models.RideStatusCancelled {
		t.Errorf("status = %s, want cancelled", ride.Status)
	}
}

func TestMemoryWithTxCancelledContext(t *testing.T) {
	g := NewMemoryGateway()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := g.WithTx(ctx, func(q Queries) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Errorf("WithTx() on cancelled context = %v, called = %v", err, called)
	}
}

func TestMemoryRatingAndPayment(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedRide(t, g, "r1", t0)

	if n, _ := g.SetRideRating(ctx, "r1", 5, t0); n != 0 {
		t.Error("rated a ride that is not completed")
	}
	if n, _ := g.MarkRidePaid(ctx, "r1", t0); n != 0 {
		t.Error("paid a ride that is not completed")
	}

	g.TransitionRide(ctx, RideTransition{RideID: "r1", From: []models.RideStatus{models.RideStatusRequested}, To: models.RideStatusCompleted, At: t0})

	if n, _ := g.SetRideRating(ctx, "r1", 5, t0); n != 1 {
		t.Error("expected first rating to apply")
	}
	if n, _ := g.SetRideRating(ctx, "r1", 3, t0); n != 0 {
		t.Error("expected second rating to be rejected")
	}
	if n, _ := g.MarkRidePaid(ctx, "r1", t0); n != 1 {
		t.Error("expected first payment to apply")
	}
	if n, _ := g.MarkRidePaid(ctx, "r1", t0); n != 0 {
		t.Error("expected second payment to be rejected")
	}
}

func TestMemoryUsersAndRating(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()

	driver := &models.User{
		Role:   models.RoleDriver,
		Phone:  "9800000002",
		Name:   "Asha",
		Rating: 5,
		Driver: &models.DriverProfile{LicenseNumber: "KA01-2020", Vehicle: models.Vehicle{PlateNumber: "KA01AB1234", Type: "sedan", Model: "Dzire"}},
	}
	if err := g.InsertUser(ctx, driver); err != nil {
		t.Fatal(err)
	}
	if driver.ID == "" {
		t.Fatal("expected InsertUser to assign an id")
	}
	if err := g.InsertUser(ctx, &models.User{Role: models.RoleRider, Phone: "9800000002"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate phone error = %v, want ErrDuplicate", err)
	}

	byPhone, _ := g.FindUserByPhone(ctx, "9800000002")
	if byPhone == nil || byPhone.ID != driver.ID || byPhone.Driver.Vehicle.PlateNumber != "KA01AB1234" {
		t.Errorf("FindUserByPhone() = %+v", byPhone)
	}

	for i, rating := range []int{5, 4} {
		id := []string{"r1", "r2"}[i]
		seedRide(t, g, id, t0)
		g.TransitionRide(ctx, RideTransition{RideID: id, From: []models.RideStatus{models.RideStatusRequested}, To: models.RideStatusCompleted, At: t0, DriverID: &driver.ID})
		g.SetRideRating(ctx, id, rating, t0)
	}
	if err := g.RefreshDriverRating(ctx, driver.ID, t0); err != nil {
		t.Fatal(err)
	}

	got, _ := g.FindUser(ctx, driver.ID)
	if got.Rating != 4.5 {
		t.Errorf("Rating = %v, want 4.5", got.Rating)
	}

	total, rides, _ := g.SumDriverEarnings(ctx, driver.ID, nil, nil)
	if total != 25 || rides != 2 {
		t.Errorf("SumDriverEarnings() = %v, %d; want 25, 2", total, rides)
	}
	later := t0.Add(time.Hour)
	total, rides, _ = g.SumDriverEarnings(ctx, driver.ID, &later, nil)
	if total != 0 || rides != 0 {
		t.Errorf("SumDriverEarnings(after) = %v, %d; want 0, 0", total, rides)
	}
}

func TestMemoryFindRidesOrdering(t *testing.T) {
	g := NewMemoryGateway()
	ctx := context.Background()
	seedRide(t, g, "old", t0)
	seedRide(t, g, "new", t0.Add(time.Minute))

	requested, _ := g.FindRidesByStatus(ctx, models.RideStatusRequested)
	if len(requested) != 2 || requested[0].ID != "old" {
		t.Errorf("FindRidesByStatus() order = %v", ids(requested))
	}

	mine, _ := g.FindRidesByParticipant(ctx, "rider-1")
	if len(mine) != 2 || mine[0].ID != "new" {
		t.Errorf("FindRidesByParticipant() order = %v", ids(mine))
	}

	none, _ := g.FindRidesByParticipant(ctx, "someone-else")
	if none == nil || len(none) != 0 {
		t.Errorf("expected an empty, non-nil slice, got %v", none)
	}
}

func ids(rides []*models.Ride) []string {
	out := make([]string, len(rides))
	for i, r := range rides {
		out[i] = r.ID
	}
	return out
}
