package service

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/logging"
	"github.com/aditya/go-dispatch/internal/models"
)

// completedRide drives a fresh ride through to completion.
func completedRide(t *testing.T, f *dispatchFixture, riderID, driverID string) *models.Ride {
	t.Helper()
	ctx := context.Background()
	ride := f.request(t, riderID)
	if _, err := f.svc.AcceptRide(ctx, ride.ID, driverID); err != nil {
		t.Fatalf("AcceptRide() error = %v", err)
	}
	if _, err := f.svc.StartRide(ctx, ride.ID, driverID); err != nil {
		t.Fatalf("StartRide() error = %v", err)
	}
	done, err := f.svc.CompleteRide(ctx, ride.ID, driverID)
	if err != nil {
		t.Fatalf("CompleteRide() error = %v", err)
	}
	return done
}

func TestProcessPayment(t *testing.T) {
	f := newDispatchFixture(t)
	f.addUser(t, "rider-1", models.RoleRider)
	f.addUser(t, "driver-1", models.RoleDriver)
	payments := NewPaymentService(f.gateway, f.publisher, f.clock, logging.Discard())
	ctx := context.Background()
	req := &models.CreatePaymentRequest{Method: models.PaymentMethodCash}

	pending := f.request(t, "rider-1")
	_, err := payments.ProcessPayment(ctx, pending.ID, "rider-1", req)
	assertKind(t, err, apperrors.ErrInvalidTransition)

	ride := completedRide(t, f, "rider-1", "driver-1")

	_, err = payments.ProcessPayment(ctx, ride.ID, "driver-1", req)
	assertKind(t, err, apperrors.ErrNotAuthorized)

	_, err = payments.ProcessPayment(ctx, ride.ID, "rider-1", &models.CreatePaymentRequest{Method: "barter"})
	assertKind(t, err, apperrors.ErrValidation)

	payment, err := payments.ProcessPayment(ctx, ride.ID, "rider-1", req)
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}
	if payment.Amount != ride.Fare || payment.DriverID != "driver-1" || payment.Status != models.PaymentStatusCompleted {
		t.Errorf("unexpected payment %+v", payment)
	}

	_, err = payments.ProcessPayment(ctx, ride.ID, "rider-1", req)
	assertKind(t, err, apperrors.ErrAlreadyPaid)
	assertKind(t, err, apperrors.ErrConflict)

	stored, _ := f.gateway.FindRide(ctx, ride.ID)
	if stored.PaymentStatus != models.PaymentStatusCompleted {
		t.Errorf("PaymentStatus = %s, want completed", stored.PaymentStatus)
	}

	types := f.publisher.types()
	if types[len(types)-1] != events.RidePaid {
		t.Errorf("last event = %s, want ride.paid", types[len(types)-1])
	}

	for _, id := range []string{"rider-1", "driver-1"} {
		history, err := payments.GetPaymentHistory(ctx, id)
		if err != nil {
			t.Fatalf("GetPaymentHistory(%s) error = %v", id, err)
		}
		if len(history) != 1 || history[0].ID != payment.ID {
			t.Errorf("GetPaymentHistory(%s) = %+v", id, history)
		}
	}

	_, err = payments.ProcessPayment(ctx, "missing", "rider-1", req)
	assertKind(t, err, apperrors.ErrNotFound)
}

func TestGetEarnings(t *testing.T) {
	f := newDispatchFixture(t)
	f.addUser(t, "rider-1", models.RoleRider)
	f.addUser(t, "driver-1", models.RoleDriver)
	payments := NewPaymentService(f.gateway, nil, f.clock, logging.Discard())
	ctx := context.Background()

	// One ride in May, one in June.
	completedRide(t, f, "rider-1", "driver-1")
	f.clock.Advance(31 * 24 * time.Hour)
	completedRide(t, f, "rider-1", "driver-1")

	tests := []struct {
		name      string
		year      int
		month     int
		wantRides int
		wantTotal float64
	}{
		{"all time", 0, 0, 2, 20},
		{"whole year", 2024, 0, 2, 20},
		{"may only", 2024, 5, 1, 10},
		{"june only", 2024, 6, 1, 10},
		{"empty month", 2024, 7, 0, 0},
		{"other year", 2023, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := payments.GetEarnings(ctx, "driver-1", tt.year, tt.month)
			if err != nil {
				t.Fatalf("GetEarnings() error = %v", err)
			}
			if e.RideCount != tt.wantRides || e.Total != tt.wantTotal {
				t.Errorf("GetEarnings() = %+v, want %d rides totalling %v", e, tt.wantRides, tt.wantTotal)
			}
		})
	}

	_, err := payments.GetEarnings(ctx, "driver-1", 2024, 13)
	assertKind(t, err, apperrors.ErrValidation)

	_, err = payments.GetEarnings(ctx, "driver-1", 0, 4)
	assertKind(t, err, apperrors.ErrValidation)

	_, err = payments.GetEarnings(ctx, "rider-1", 0, 0)
	assertKind(t, err, apperrors.ErrNotFound)
}
