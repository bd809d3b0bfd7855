package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
)

type memoryStore struct {
	mu           sync.RWMutex
	rides        map[string]*models.Ride
	rideOrder    []string
	availability map[string]*models.Availability
	users        map[string]*models.User
	phones       map[string]string
	payments     []*models.Payment
}

// memQueries operates on the store. Inside a transaction the store lock is
// already held by WithTx and every write registers an undo step.
type memQueries struct {
	store *memoryStore
	inTx  bool
	undo  []func()
}

// MemoryGateway keeps every record in process. Transactions are serialized
// behind one lock and rolled back through an undo log.
type MemoryGateway struct {
	*memQueries
}

func NewMemoryGateway() *MemoryGateway {
	store := &memoryStore{
		rides:        make(map[string]*models.Ride),
		availability: make(map[string]*models.Availability),
		users:        make(map[string]*models.User),
		phones:       make(map[string]string),
	}
	return &MemoryGateway{memQueries: &memQueries{store: store}}
}

func (g *MemoryGateway) WithTx(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.store.mu.Lock()
	defer g.store.mu.Unlock()

	tx := &memQueries{store: g.store, inTx: true}
	if err := fn(tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

func (g *MemoryGateway) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (q *memQueries) read(fn func()) {
	if !q.inTx {
		q.store.mu.RLock()
		defer q.store.mu.RUnlock()
	}
	fn()
}

func (q *memQueries) write(fn func()) {
	if !q.inTx {
		q.store.mu.Lock()
		defer q.store.mu.Unlock()
	}
	fn()
}

func (q *memQueries) onRollback(fn func()) {
	if q.inTx {
		q.undo = append(q.undo, fn)
	}
}

// Rides

func (q *memQueries) InsertRide(ctx context.Context, ride *models.Ride) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	ride.UpdatedAt = ride.RequestedAt

	var err error
	q.write(func() {
		s := q.store
		if _, exists := s.rides[ride.ID]; exists {
			err = ErrDuplicate
			return
		}
		s.rides[ride.ID] = ride.Clone()
		s.rideOrder = append(s.rideOrder, ride.ID)

		n := len(s.rideOrder) - 1
		q.onRollback(func() {
			delete(s.rides, ride.ID)
			s.rideOrder = s.rideOrder[:n]
		})
	})
	return err
}

func (q *memQueries) FindRide(ctx context.Context, id string) (*models.Ride, error) {
	var ride *models.Ride
	q.read(func() {
		if r, ok := q.store.rides[id]; ok {
			ride = r.Clone()
		}
	})
	return ride, nil
}

func (q *memQueries) FindRideForUpdate(ctx context.Context, id string) (*models.Ride, error) {
	return q.FindRide(ctx, id)
}

func (q *memQueries) FindRidesByStatus(ctx context.Context, status models.RideStatus) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	q.read(func() {
		for _, id := range q.store.rideOrder {
			if r := q.store.rides[id]; r.Status == status {
				rides = append(rides, r.Clone())
			}
		}
	})
	sort.SliceStable(rides, func(i, j int) bool {
		return rides[i].RequestedAt.Before(rides[j].RequestedAt)
	})
	return rides, nil
}

func (q *memQueries) FindRidesByParticipant(ctx context.Context, userID string) ([]*models.Ride, error) {
	rides := []*models.Ride{}
	q.read(func() {
		for i := len(q.store.rideOrder) - 1; i >= 0; i-- {
			if r := q.store.rides[q.store.rideOrder[i]]; r.IsParticipant(userID) {
				rides = append(rides, r.Clone())
			}
		}
	})
	sort.SliceStable(rides, func(i, j int) bool {
		return rides[i].RequestedAt.After(rides[j].RequestedAt)
	})
	return rides, nil
}

func (q *memQueries) TransitionRide(ctx context.Context, t RideTransition) (int64, error) {
	if _, ok := transitionColumns[t.To]; !ok {
		return 0, fmt.Errorf("no transition into status %q", t.To)
	}

	var applied int64
	q.write(func() {
		r, ok := q.store.rides[t.RideID]
		if !ok || !containsStatus(t.From, r.Status) {
			return
		}
		q.saveRide(r)

		at := t.At
		r.Status = t.To
		r.UpdatedAt = at
		switch t.To {
		case models.RideStatusAccepted:
			r.AcceptedAt = &at
		case models.RideStatusStarted:
			r.StartedAt = &at
		case models.RideStatusCompleted:
			r.CompletedAt = &at
		case models.RideStatusCancelled:
			r.CancelledAt = &at
		}
		if t.DriverID != nil {
			driverID := *t.DriverID
			r.DriverID = &driverID
		}
		if t.ActorID != nil {
			actorID := *t.ActorID
			r.CancelledBy = &actorID
		}
		applied = 1
	})
	return applied, nil
}

func (q *memQueries) SetRideRating(ctx context.Context, rideID string, rating int, at time.Time) (int64, error) {
	var applied int64
	q.write(func() {
		r, ok := q.store.rides[rideID]
		if !ok || r.Status != models.RideStatusCompleted || r.Rating != nil {
			return
		}
		q.saveRide(r)
		v := rating
		r.Rating = &v
		r.UpdatedAt = at
		applied = 1
	})
	return applied, nil
}

func (q *memQueries) MarkRidePaid(ctx context.Context, rideID string, at time.Time) (int64, error) {
	var applied int64
	q.write(func() {
		r, ok := q.store.rides[rideID]
		if !ok || r.Status != models.RideStatusCompleted || r.PaymentStatus != models.PaymentStatusPending {
			return
		}
		q.saveRide(r)
		r.PaymentStatus = models.PaymentStatusCompleted
		r.UpdatedAt = at
		applied = 1
	})
	return applied, nil
}

// saveRide registers the ride's current state for rollback.
func (q *memQueries) saveRide(r *models.Ride) {
	prev := r.Clone()
	q.onRollback(func() { q.store.rides[prev.ID] = prev })
}

func containsStatus(statuses []models.RideStatus, s models.RideStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Availability

func (q *memQueries) InsertAvailability(ctx context.Context, a *models.Availability) error {
	var err error
	q.write(func() {
		s := q.store
		if _, exists := s.availability[a.DriverID]; exists {
			err = ErrDuplicate
			return
		}
		s.availability[a.DriverID] = a.Clone()
		q.onRollback(func() { delete(s.availability, a.DriverID) })
	})
	return err
}

func (q *memQueries) FindAvailability(ctx context.Context, driverID string) (*models.Availability, error) {
	var a *models.Availability
	q.read(func() {
		if rec, ok := q.store.availability[driverID]; ok {
			a = rec.Clone()
		}
	})
	return a, nil
}

func (q *memQueries) BindDriver(ctx context.Context, driverID, rideID string, at time.Time) (int64, error) {
	var applied int64
	q.write(func() {
		a, ok := q.store.availability[driverID]
		if !ok || !a.IsAvailable {
			return
		}
		q.saveAvailability(a)
		id := rideID
		a.IsAvailable = false
		a.CurrentRideID = &id
		a.UpdatedAt = at
		applied = 1
	})
	return applied, nil
}

func (q *memQueries) ReleaseDriver(ctx context.Context, driverID string, at time.Time) (int64, error) {
	var applied int64
	q.write(func() {
		a, ok := q.store.availability[driverID]
		if !ok {
			return
		}
		q.saveAvailability(a)
		a.IsAvailable = true
		a.CurrentRideID = nil
		a.UpdatedAt = at
		applied = 1
	})
	return applied, nil
}

func (q *memQueries) saveAvailability(a *models.Availability) {
	prev := a.Clone()
	q.onRollback(func() { q.store.availability[prev.DriverID] = prev })
}

// Users

func (q *memQueries) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	var err error
	q.write(func() {
		s := q.store
		if _, exists := s.users[user.ID]; exists {
			err = ErrDuplicate
			return
		}
		if _, taken := s.phones[user.Phone]; taken {
			err = ErrDuplicate
			return
		}
		s.users[user.ID] = user.Clone()
		s.phones[user.Phone] = user.ID
		q.onRollback(func() {
			delete(s.users, user.ID)
			delete(s.phones, user.Phone)
		})
	})
	return err
}

func (q *memQueries) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	q.read(func() {
		if u, ok := q.store.users[id]; ok {
			user = u.Clone()
		}
	})
	return user, nil
}

func (q *memQueries) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user *models.User
	q.read(func() {
		if id, ok := q.store.phones[phone]; ok {
			user = q.store.users[id].Clone()
		}
	})
	return user, nil
}

func (q *memQueries) IncrementRideCount(ctx context.Context, userID string, at time.Time) (int64, error) {
	var applied int64
	q.write(func() {
		u, ok := q.store.users[userID]
		if !ok {
			return
		}
		q.saveUser(u)
		u.RideCount++
		u.UpdatedAt = at
		applied = 1
	})
	return applied, nil
}

func (q *memQueries) RefreshDriverRating(ctx context.Context, driverID string, at time.Time) error {
	q.write(func() {
		u, ok := q.store.users[driverID]
		if !ok {
			return
		}

		var sum, n int
		for _, r := range q.store.rides {
			if r.IsDriver(driverID) && r.Rating != nil {
				sum += *r.Rating
				n++
			}
		}
		if n == 0 {
			return
		}

		q.saveUser(u)
		u.Rating = math.Round(float64(sum)/float64(n)*100) / 100
		u.UpdatedAt = at
	})
	return nil
}

func (q *memQueries) saveUser(u *models.User) {
	prev := u.Clone()
	q.onRollback(func() { q.store.users[prev.ID] = prev })
}

// Payments

func (q *memQueries) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	q.write(func() {
		s := q.store
		n := len(s.payments)
		c := *p
		s.payments = append(s.payments, &c)
		q.onRollback(func() { s.payments = s.payments[:n] })
	})
	return nil
}

func (q *memQueries) FindPaymentsByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	payments := []*models.Payment{}
	q.read(func() {
		for i := len(q.store.payments) - 1; i >= 0; i-- {
			p := q.store.payments[i]
			if p.UserID == userID || p.DriverID == userID {
				c := *p
				payments = append(payments, &c)
			}
		}
	})
	return payments, nil
}

func (q *memQueries) SumDriverEarnings(ctx context.Context, driverID string, from, to *time.Time) (float64, int, error) {
	var (
		total float64
		rides int
	)
	q.read(func() {
		for _, r := range q.store.rides {
			if !r.IsDriver(driverID) || r.Status != models.RideStatusCompleted || r.CompletedAt == nil {
				continue
			}
			if from != nil && r.CompletedAt.Before(*from) {
				continue
			}
			if to != nil && !r.CompletedAt.Before(*to) {
				continue
			}
			total += r.Fare
			rides++
		}
	})
	return total, rides, nil
}
