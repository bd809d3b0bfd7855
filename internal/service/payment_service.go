package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/aditya/go-dispatch/pkg/utils"
)

type PaymentService interface {
	ProcessPayment(ctx context.Context, rideID, riderID string, req *models.CreatePaymentRequest) (*models.Payment, error)
	GetPaymentHistory(ctx context.Context, userID string) ([]*models.Payment, error)
	GetEarnings(ctx context.Context, driverID string, year, month int) (*models.Earnings, error)
}

type paymentService struct {
	gateway   repository.Gateway
	publisher events.Publisher
	clock     Clock
	logger    *slog.Logger
}

func NewPaymentService(gateway repository.Gateway, publisher events.Publisher, clock Clock, logger *slog.Logger) PaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &paymentService{
		gateway:   gateway,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// ProcessPayment settles a completed ride for its fare. Each ride is paid
// exactly once, by its rider.
func (s *paymentService) ProcessPayment(ctx context.Context, rideID, riderID string, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if !models.IsValidPaymentMethod(req.Method) {
		return nil, apperrors.BadRequest("invalid payment method")
	}

	var (
		payment *models.Payment
		paid    *models.Ride
	)
	err := s.gateway.WithTx(ctx, func(q repository.Queries) error {
		ride, err := q.FindRideForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride == nil {
			return apperrors.NotFound("ride")
		}
		if ride.RiderID != riderID {
			return apperrors.NotAuthorized("only the rider can pay for this ride")
		}
		if ride.Status != models.RideStatusCompleted {
			return apperrors.InvalidTransition(string(ride.Status), "paid")
		}
		if ride.PaymentStatus == models.PaymentStatusCompleted {
			return apperrors.AlreadyPaid(rideID)
		}

		at := stampFor(s.clock, ride)
		n, err := q.MarkRidePaid(ctx, rideID, at)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.AlreadyPaid(rideID)
		}

		payment = &models.Payment{
			ID:        utils.GenerateID(),
			RideID:    ride.ID,
			UserID:    ride.RiderID,
			DriverID:  *ride.DriverID,
			Amount:    ride.Fare,
			Method:    req.Method,
			Status:    models.PaymentStatusCompleted,
			CreatedAt: at,
		}
		if err := q.InsertPayment(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.AlreadyPaid(rideID)
			}
			return err
		}

		ride.PaymentStatus = models.PaymentStatusCompleted
		ride.UpdatedAt = at
		paid = ride
		return nil
	})
	if err != nil {
		return nil, mapError(s.logger, "payment", err)
	}

	s.logger.Info("payment processed", "ride_id", rideID, "payment_id", payment.ID, "amount", payment.Amount, "method", payment.Method)
	publish(ctx, s.logger, s.publisher, events.NewRideEvent(events.RidePaid, paid, riderID, payment.CreatedAt))
	return payment, nil
}

func (s *paymentService) GetPaymentHistory(ctx context.Context, userID string) ([]*models.Payment, error) {
	payments, err := s.gateway.FindPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, mapError(s.logger, "payment_history", err)
	}
	return payments, nil
}

// GetEarnings totals a driver's completed fares. Year 0 means all time; a
// month narrows the window to that calendar month in UTC.
func (s *paymentService) GetEarnings(ctx context.Context, driverID string, year, month int) (*models.Earnings, error) {
	if month < 0 || month > 12 {
		return nil, apperrors.BadRequest("month must be between 1 and 12")
	}
	if month != 0 && year == 0 {
		return nil, apperrors.BadRequest("month requires a year")
	}

	user, err := s.gateway.FindUser(ctx, driverID)
	if err != nil {
		return nil, mapError(s.logger, "earnings", err)
	}
	if user == nil || !user.IsDriver() {
		return nil, apperrors.NotFound("driver")
	}

	var from, to *time.Time
	if year != 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		if month != 0 {
			start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			end = start.AddDate(0, 1, 0)
		}
		from, to = &start, &end
	}

	total, rides, err := s.gateway.SumDriverEarnings(ctx, driverID, from, to)
	if err != nil {
		return nil, mapError(s.logger, "earnings", err)
	}

	return &models.Earnings{
		DriverID:  driverID,
		Total:     round(total),
		RideCount: rides,
		Year:      year,
		Month:     month,
	}, nil
}
