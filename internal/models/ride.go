package models

import (
	"strings"
	"time"
)

type RideStatus string

// Ride status constants
const (
	RideStatusRequested RideStatus = "requested"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusStarted   RideStatus = "started"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// Valid ride state transitions
var ValidRideTransitions = map[RideStatus][]RideStatus{
	RideStatusRequested: {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:  {RideStatusStarted, RideStatusCancelled},
	RideStatusStarted:   {RideStatusCompleted},
	RideStatusCompleted: {},
	RideStatusCancelled: {},
}

func IsValidRideStatus(status string) bool {
	_, ok := ValidRideTransitions[RideStatus(status)]
	return ok
}

// Location is an address with optional coordinates.
type Location struct {
	Address string   `json:"address" validate:"required"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng     *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
}

// HasCoordinates reports whether both lat and lng are present.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// IsValid requires at least three non-blank characters of address.
func (l Location) IsValid() bool {
	return len(strings.TrimSpace(l.Address)) >= 3
}

type Ride struct {
	ID               string        `db:"id" json:"id"`
	RiderID          string        `db:"rider_id" json:"rider_id"`
	DriverID         *string       `db:"driver_id" json:"driver_id,omitempty"`
	PickupAddress    string        `db:"pickup_address" json:"pickup_address"`
	PickupLat        *float64      `db:"pickup_lat" json:"pickup_lat,omitempty"`
	PickupLng        *float64      `db:"pickup_lng" json:"pickup_lng,omitempty"`
	DropAddress      string        `db:"drop_address" json:"drop_address"`
	DropLat          *float64      `db:"drop_lat" json:"drop_lat,omitempty"`
	DropLng          *float64      `db:"drop_lng" json:"drop_lng,omitempty"`
	Status           RideStatus    `db:"status" json:"status"`
	Fare             float64       `db:"fare" json:"fare"`
	EstimatedMinutes int           `db:"estimated_minutes" json:"estimated_minutes"`
	Rating           *int          `db:"rating" json:"rating,omitempty"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"payment_status"`
	CancelledBy      *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	RequestedAt      time.Time     `db:"requested_at" json:"requested_at"`
	AcceptedAt       *time.Time    `db:"accepted_at" json:"accepted_at,omitempty"`
	StartedAt        *time.Time    `db:"started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt      *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

type CreateRideRequest struct {
	RiderID string   `json:"-"`
	Pickup  Location `json:"pickup" validate:"required"`
	Drop    Location `json:"drop" validate:"required"`
}

type RateRideRequest struct {
	Rating int `json:"rating"`
}

type RideResponse struct {
	ID               string        `json:"id"`
	Status           RideStatus    `json:"status"`
	RiderID          string        `json:"rider_id"`
	DriverID         *string       `json:"driver_id,omitempty"`
	Pickup           Location      `json:"pickup"`
	Drop             Location      `json:"drop"`
	Fare             float64       `json:"fare"`
	EstimatedMinutes int           `json:"estimated_minutes"`
	Rating           *int          `json:"rating,omitempty"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	CancelledBy      *string       `json:"cancelled_by,omitempty"`
	RequestedAt      time.Time     `json:"requested_at"`
	AcceptedAt       *time.Time    `json:"accepted_at,omitempty"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty"`
	DurationMinutes  *float64      `json:"duration_minutes,omitempty"`
}

func (r *Ride) Pickup() Location {
	return Location{Address: r.PickupAddress, Lat: r.PickupLat, Lng: r.PickupLng}
}

func (r *Ride) Drop() Location {
	return Location{Address: r.DropAddress, Lat: r.DropLat, Lng: r.DropLng}
}

func (r *Ride) ToResponse() *RideResponse {
	resp := &RideResponse{
		ID:               r.ID,
		Status:           r.Status,
		RiderID:          r.RiderID,
		DriverID:         r.DriverID,
		Pickup:           r.Pickup(),
		Drop:             r.Drop(),
		Fare:             r.Fare,
		EstimatedMinutes: r.EstimatedMinutes,
		Rating:           r.Rating,
		PaymentStatus:    r.PaymentStatus,
		CancelledBy:      r.CancelledBy,
		RequestedAt:      r.RequestedAt,
		AcceptedAt:       r.AcceptedAt,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		CancelledAt:      r.CancelledAt,
	}

	if d, ok := r.Duration(); ok {
		mins := d.Minutes()
		resp.DurationMinutes = &mins
	}

	return resp
}

// CanTransitionTo checks if a ride can transition to a new status
func (r *Ride) CanTransitionTo(newStatus RideStatus) bool {
	validNextStates, exists := ValidRideTransitions[r.Status]
	if !exists {
		return false
	}

	for _, state := range validNextStates {
		if state == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal returns true for completed and cancelled rides.
func (r *Ride) IsTerminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCancelled
}

// IsParticipant reports whether userID is the rider or the bound driver.
func (r *Ride) IsParticipant(userID string) bool {
	return r.RiderID == userID || r.IsDriver(userID)
}

func (r *Ride) IsDriver(driverID string) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// Duration is only available once the ride has both started and completed.
func (r *Ride) Duration() (time.Duration, bool) {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0, false
	}
	return r.CompletedAt.Sub(*r.StartedAt), true
}

// Clone returns a deep copy of the ride.
func (r *Ride) Clone() *Ride {
	c := *r
	c.DriverID = cloneString(r.DriverID)
	c.CancelledBy = cloneString(r.CancelledBy)
	c.PickupLat = cloneFloat(r.PickupLat)
	c.PickupLng = cloneFloat(r.PickupLng)
	c.DropLat = cloneFloat(r.DropLat)
	c.DropLng = cloneFloat(r.DropLng)
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
