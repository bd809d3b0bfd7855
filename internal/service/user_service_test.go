package service

import (
	"context"
	"testing"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/logging"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

func TestRegisterRider(t *testing.T) {
	g := repository.NewMemoryGateway()
	svc := NewUserService(g, nil, logging.Discard())
	ctx := context.Background()

	user, err := svc.RegisterRider(ctx, &models.CreateRiderRequest{
		Phone:          "9876543210",
		Name:           " Asha ",
		PaymentMethods: []string{models.PaymentMethodCash},
	})
	if err != nil {
		t.Fatalf("RegisterRider() error = %v", err)
	}
	if user.Role != models.RoleRider || user.Name != "Asha" || user.Rating != 5 {
		t.Errorf("unexpected rider %+v", user)
	}
	if user.Email != nil {
		t.Errorf("Email = %v, want nil", *user.Email)
	}

	got, err := svc.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Rider == nil || len(got.Rider.PaymentMethods) != 1 {
		t.Errorf("rider profile = %+v", got.Rider)
	}

	_, err = svc.RegisterRider(ctx, &models.CreateRiderRequest{Phone: "9876543210", Name: "Other"})
	assertKind(t, err, apperrors.ErrConflict)
}

func TestRegisterDriverCreatesAvailability(t *testing.T) {
	g := repository.NewMemoryGateway()
	svc := NewUserService(g, nil, logging.Discard())
	ctx := context.Background()

	user, err := svc.RegisterDriver(ctx, &models.CreateDriverRequest{
		Phone:         "9123456780",
		Name:          "Ravi",
		LicenseNumber: "KA0120230001",
		Vehicle:       models.Vehicle{PlateNumber: "KA01AB1234", Type: models.VehicleTypeSedan, Model: "Dzire"},
	})
	if err != nil {
		t.Fatalf("RegisterDriver() error = %v", err)
	}
	if !user.IsDriver() || user.Driver == nil || user.Driver.Vehicle.PlateNumber != "KA01AB1234" {
		t.Errorf("unexpected driver %+v", user)
	}

	a, err := g.FindAvailability(ctx, user.ID)
	if err != nil || a == nil {
		t.Fatalf("FindAvailability() = %v, %v", a, err)
	}
	if !a.IsAvailable || a.CurrentRideID != nil {
		t.Errorf("new driver availability = %+v", a)
	}
}

func TestRegisterDriverDuplicatePhoneLeavesNoAvailability(t *testing.T) {
	g := repository.NewMemoryGateway()
	svc := NewUserService(g, nil, logging.Discard())
	ctx := context.Background()

	if _, err := svc.RegisterRider(ctx, &models.CreateRiderRequest{Phone: "9000000001", Name: "Rider"}); err != nil {
		t.Fatalf("RegisterRider() error = %v", err)
	}
	_, err := svc.RegisterDriver(ctx, &models.CreateDriverRequest{
		Phone:         "9000000001",
		Name:          "Driver",
		LicenseNumber: "LIC12345",
		Vehicle:       models.Vehicle{PlateNumber: "KA01", Type: models.VehicleTypeBike, Model: "Pulsar"},
	})
	assertKind(t, err, apperrors.ErrConflict)
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewUserService(repository.NewMemoryGateway(), nil, logging.Discard())
	_, err := svc.GetUser(context.Background(), "missing")
	assertKind(t, err, apperrors.ErrNotFound)
}
