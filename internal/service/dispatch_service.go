package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/events"
	"github.com/aditya/go-dispatch/internal/lock"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/observability"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/aditya/go-dispatch/pkg/utils"
)

// Operation names used in logs and metrics.
const (
	opRequest  = "request"
	opAccept   = "accept"
	opStart    = "start"
	opComplete = "complete"
	opCancel   = "cancel"
	opRate     = "rate"
)

// DispatchService owns every ride and driver-availability mutation.
type DispatchService interface {
	RequestRide(ctx context.Context, req *models.CreateRideRequest) (*models.Ride, error)
	AcceptRide(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	StartRide(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	CompleteRide(ctx context.Context, rideID, driverID string) (*models.Ride, error)
	CancelRide(ctx context.Context, rideID, actorID string) (*models.Ride, error)
	RateRide(ctx context.Context, rideID string, rating int) (*models.Ride, error)
	DriverAvailability(ctx context.Context, driverID string) (*models.Availability, error)
}

type dispatchService struct {
	gateway        repository.Gateway
	tracker        *AvailabilityTracker
	fares          FareEstimator
	locks          *lock.KeyedMutex
	publisher      events.Publisher
	availableCache cache.AvailableRidesCache
	clock          Clock
	logger         *slog.Logger
}

func NewDispatchService(
	gateway repository.Gateway,
	fares FareEstimator,
	publisher events.Publisher,
	availableCache cache.AvailableRidesCache,
	clock Clock,
	logger *slog.Logger,
) DispatchService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &dispatchService{
		gateway:        gateway,
		tracker:        NewAvailabilityTracker(),
		fares:          fares,
		locks:          lock.NewKeyedMutex(),
		publisher:      publisher,
		availableCache: availableCache,
		clock:          clock,
		logger:         logger,
	}
}

func rideKey(id string) string   { return "ride:" + id }
func driverKey(id string) string { return "driver:" + id }

func (s *dispatchService) RequestRide(ctx context.Context, req *models.CreateRideRequest) (*models.Ride, error) {
	start := time.Now()

	if req.RiderID == "" {
		return nil, s.finish(opRequest, start, apperrors.BadRequest("rider id is required"))
	}
	if !req.Pickup.IsValid() {
		return nil, s.finish(opRequest, start, apperrors.BadRequest("pickup address must be at least 3 characters"))
	}
	if !req.Drop.IsValid() {
		return nil, s.finish(opRequest, start, apperrors.BadRequest("drop address must be at least 3 characters"))
	}

	distanceKm := s.fares.EstimateDistance(req.Pickup, req.Drop)
	ride := &models.Ride{
		ID:               utils.GenerateID(),
		RiderID:          req.RiderID,
		PickupAddress:    req.Pickup.Address,
		PickupLat:        req.Pickup.Lat,
		PickupLng:        req.Pickup.Lng,
		DropAddress:      req.Drop.Address,
		DropLat:          req.Drop.Lat,
		DropLng:          req.Drop.Lng,
		Status:           models.RideStatusRequested,
		Fare:             s.fares.Estimate(req.Pickup, req.Drop),
		EstimatedMinutes: s.fares.EstimateDuration(distanceKm),
		PaymentStatus:    models.PaymentStatusPending,
		RequestedAt:      now(s.clock),
	}
	ride.UpdatedAt = ride.RequestedAt

	if err := s.gateway.InsertRide(ctx, ride); err != nil {
		return nil, s.finish(opRequest, start, err)
	}

	s.logger.Info("ride requested", "ride_id", ride.ID, "rider_id", ride.RiderID, "fare", ride.Fare)
	s.afterCommit(ctx, events.RideRequested, ride, ride.RiderID, true)
	return ride, s.finish(opRequest, start, nil)
}

// AcceptRide binds the driver and moves the ride to accepted as one unit.
// Among concurrent accepts for one ride exactly one wins; the rest see
// AlreadyAccepted. A driver already bound elsewhere gets DriverBusy.
func (s *dispatchService) AcceptRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	start := time.Now()

	if rideID == "" || driverID == "" {
		return nil, s.finish(opAccept, start, apperrors.BadRequest("ride id and driver id are required"))
	}

	var accepted *models.Ride
	err := s.locked(ctx, []string{rideKey(rideID), driverKey(driverID)}, func(q repository.Queries) error {
		ride, err := q.FindRideForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride == nil {
			return apperrors.NotFound("ride")
		}

		switch ride.Status {
		case models.RideStatusRequested:
		case models.RideStatusAccepted, models.RideStatusStarted, models.RideStatusCompleted:
			return apperrors.AlreadyAccepted(rideID)
		default:
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusAccepted))
		}

		at := stampFor(s.clock, ride)
		bound, err := s.tracker.TryBind(ctx, q, driverID, rideID, at)
		if err != nil {
			return err
		}
		if !bound {
			availability, err := s.tracker.Lookup(ctx, q, driverID)
			if err != nil {
				return err
			}
			if availability == nil {
				return apperrors.NotFound("driver")
			}
			return apperrors.DriverBusy(driverID)
		}

		n, err := q.TransitionRide(ctx, repository.RideTransition{
			RideID:   rideID,
			From:     []models.RideStatus{models.RideStatusRequested},
			To:       models.RideStatusAccepted,
			At:       at,
			DriverID: &driverID,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.AlreadyAccepted(rideID)
		}

		ride.Status = models.RideStatusAccepted
		ride.DriverID = &driverID
		ride.AcceptedAt = &at
		ride.UpdatedAt = at
		accepted = ride
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, s.finish(opAccept, start, err)
	}

	s.logger.Info("ride accepted", "ride_id", rideID, "driver_id", driverID)
	s.afterCommit(ctx, events.RideAccepted, accepted, driverID, true)
	return accepted, s.finish(opAccept, start, nil)
}

func (s *dispatchService) StartRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	start := time.Now()

	var started *models.Ride
	err := s.locked(ctx, []string{rideKey(rideID)}, func(q repository.Queries) error {
		ride, err := q.FindRideForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride == nil {
			return apperrors.NotFound("ride")
		}
		if err := authorizeDriver(ride, driverID, models.RideStatusStarted); err != nil {
			return err
		}
		if ride.Status != models.RideStatusAccepted {
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusStarted))
		}

		at := stampFor(s.clock, ride)
		n, err := q.TransitionRide(ctx, repository.RideTransition{
			RideID: rideID,
			From:   []models.RideStatus{models.RideStatusAccepted},
			To:     models.RideStatusStarted,
			At:     at,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusStarted))
		}

		ride.Status = models.RideStatusStarted
		ride.StartedAt = &at
		ride.UpdatedAt = at
		started = ride
		return nil
	})
	if err != nil {
		return nil, s.finish(opStart, start, err)
	}

	s.logger.Info("ride started", "ride_id", rideID, "driver_id", driverID)
	s.afterCommit(ctx, events.RideStarted, started, driverID, false)
	return started, s.finish(opStart, start, nil)
}

// CompleteRide finishes the ride, frees the driver and bumps both
// participants' ride counters. A repeat call fails with InvalidTransition.
func (s *dispatchService) CompleteRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	start := time.Now()

	var completed *models.Ride
	err := s.locked(ctx, []string{rideKey(rideID), driverKey(driverID)}, func(q repository.Queries) error {
		ride, err := q.FindRideForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride == nil {
			return apperrors.NotFound("ride")
		}
		if err := authorizeDriver(ride, driverID, models.RideStatusCompleted); err != nil {
			return err
		}
		if ride.Status != models.RideStatusStarted {
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusCompleted))
		}

		at := stampFor(s.clock, ride)
		n, err := q.TransitionRide(ctx, repository.RideTransition{
			RideID: rideID,
			From:   []models.RideStatus{models.RideStatusStarted},
			To:     models.RideStatusCompleted,
			At:     at,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusCompleted))
		}

		if err := s.tracker.Release(ctx, q, driverID, at); err != nil {
			return err
		}
		for _, userID := range []string{ride.RiderID, driverID} {
			if _, err := q.IncrementRideCount(ctx, userID, at); err != nil {
				return err
			}
		}

		ride.Status = models.RideStatusCompleted
		ride.CompletedAt = &at
		ride.UpdatedAt = at
		completed = ride
		return nil
	})
	if err != nil {
		return nil, s.finish(opComplete, start, err)
	}

	s.logger.Info("ride completed", "ride_id", rideID, "driver_id", driverID)
	s.afterCommit(ctx, events.RideCompleted, completed, driverID, false)
	return completed, s.finish(opComplete, start, nil)
}

// CancelRide may be called by the rider or the assigned driver before the
// ride starts. A bound driver is freed; driver_id stays on the ride.
func (s *dispatchService) CancelRide(ctx context.Context, rideID, actorID string) (*models.Ride, error) {
	start := time.Now()

	var (
		cancelled    *models.Ride
		wasRequested bool
	)
	err := s.locked(ctx, []string{rideKey(rideID)}, func(q repository.Queries) error {
		ride, err := q.FindRideForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride == nil {
			return apperrors.NotFound("ride")
		}
		if !ride.IsParticipant(actorID) {
			return apperrors.NotAuthorized("only the rider or the assigned driver can cancel this ride")
		}
		if !ride.CanTransitionTo(models.RideStatusCancelled) {
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusCancelled))
		}

		at := stampFor(s.clock, ride)
		n, err := q.TransitionRide(ctx, repository.RideTransition{
			RideID:  rideID,
			From:    []models.RideStatus{models.RideStatusRequested, models.RideStatusAccepted},
			To:      models.RideStatusCancelled,
			At:      at,
			ActorID: &actorID,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.InvalidTransition(string(ride.Status), string(models.RideStatusCancelled))
		}

		if ride.DriverID != nil {
			if err := s.tracker.Release(ctx, q, *ride.DriverID, at); err != nil {
				return err
			}
		}

		wasRequested = ride.Status == models.RideStatusRequested
		ride.Status = models.RideStatusCancelled
		ride.CancelledAt = &at
		ride.CancelledBy = &actorID
		ride.UpdatedAt = at
		cancelled = ride
		return nil
	})
	if err != nil {
		return nil, s.finish(opCancel, start, err)
	}

	s.logger.Info("ride cancelled", "ride_id", rideID, "actor_id", actorID)
	s.afterCommit(ctx, events.RideCancelled, cancelled, actorID, wasRequested)
	return cancelled, s.finish(opCancel, start, nil)
}

func (s *dispatchService) RateRide(ctx context.Context, rideID string, rating int) (*models.Ride, error) {
	start := time.Now()

	if rating < 1 || rating > 5 {
		return nil, s.finish(opRate, start, apperrors.InvalidRating(rating))
	}

	var rated *models.Ride
	err := s.locked(ctx, []string{rideKey(rideID)}, func(q repository.Queries) error {
		ride, err := q.FindRideForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride == nil {
			return apperrors.NotFound("ride")
		}
		if ride.Status != models.RideStatusCompleted {
			return apperrors.InvalidTransition(string(ride.Status), "rated")
		}
		if ride.Rating != nil {
			return apperrors.AlreadyRated(rideID)
		}

		at := stampFor(s.clock, ride)
		n, err := q.SetRideRating(ctx, rideID, rating, at)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.AlreadyRated(rideID)
		}
		if ride.DriverID != nil {
			if err := q.RefreshDriverRating(ctx, *ride.DriverID, at); err != nil {
				return err
			}
		}

		ride.Rating = &rating
		ride.UpdatedAt = at
		rated = ride
		return nil
	})
	if err != nil {
		return nil, s.finish(opRate, start, err)
	}

	s.afterCommit(ctx, events.RideRated, rated, rated.RiderID, false)
	return rated, s.finish(opRate, start, nil)
}

func (s *dispatchService) DriverAvailability(ctx context.Context, driverID string) (*models.Availability, error) {
	availability, err := s.tracker.Lookup(ctx, s.gateway, driverID)
	if err != nil {
		return nil, mapError(s.logger, "availability", err)
	}
	if availability == nil {
		return nil, apperrors.NotFound("driver")
	}
	return availability, nil
}

// authorizeDriver checks that driverID is the driver bound to the ride.
func authorizeDriver(ride *models.Ride, driverID string, to models.RideStatus) error {
	if ride.DriverID == nil {
		return apperrors.InvalidTransition(string(ride.Status), string(to))
	}
	if !ride.IsDriver(driverID) {
		return apperrors.NotAuthorized("only the assigned driver can " + verbFor(to) + " this ride")
	}
	return nil
}

func verbFor(status models.RideStatus) string {
	switch status {
	case models.RideStatusStarted:
		return "start"
	case models.RideStatusCompleted:
		return "complete"
	default:
		return "update"
	}
}

// locked runs fn in one transaction while holding the keys. The keys are
// released as soon as the transaction ends, before any post-commit work.
func (s *dispatchService) locked(ctx context.Context, keys []string, fn func(q repository.Queries) error) error {
	unlock := s.locks.Lock(keys...)
	defer unlock()
	return s.gateway.WithTx(ctx, fn)
}

func (s *dispatchService) afterCommit(ctx context.Context, t events.Type, ride *models.Ride, actorID string, availableChanged bool) {
	if availableChanged && s.availableCache != nil {
		if err := s.availableCache.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate available rides cache", "ride_id", ride.ID, "error", err)
		}
	}
	publish(ctx, s.logger, s.publisher, events.NewRideEvent(t, ride, actorID, ride.UpdatedAt))
}

func (s *dispatchService) countConflict(err error) {
	apiErr, ok := apperrors.AsAPIError(err)
	if !ok {
		return
	}
	switch apiErr.Code {
	case "already_accepted", "driver_busy":
		observability.AcceptConflicts.WithLabelValues(apiErr.Code).Inc()
	}
}

func (s *dispatchService) finish(op string, start time.Time, err error) error {
	observability.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	err = mapError(s.logger, op, err)

	outcome := "ok"
	if apiErr, ok := apperrors.AsAPIError(err); ok {
		outcome = apiErr.Code
	}
	observability.RideTransitions.WithLabelValues(op, outcome).Inc()
	return err
}
