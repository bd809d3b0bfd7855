package models

import (
	"time"
)

// Vehicle types
const (
	VehicleTypeHatchback = "hatchback"
	VehicleTypeSedan     = "sedan"
	VehicleTypeSUV       = "suv"
	VehicleTypeBike      = "bike"
)

type Vehicle struct {
	PlateNumber string `json:"plate_number" validate:"required,min=4,max=15"`
	Type        string `json:"vehicle_type" validate:"required,oneof=hatchback sedan suv bike"`
	Model       string `json:"model" validate:"required,min=2,max=50"`
}

type DriverProfile struct {
	LicenseNumber string  `json:"license_number"`
	Vehicle       Vehicle `json:"vehicle"`
}

type CreateDriverRequest struct {
	Phone         string  `json:"phone" validate:"required,min=10,max=15,numeric"`
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Email         string  `json:"email,omitempty" validate:"omitempty,email"`
	LicenseNumber string  `json:"license_number" validate:"required,min=5,max=20"`
	Vehicle       Vehicle `json:"vehicle" validate:"required"`
}

// Availability is the dispatch view of a driver: free, or bound to one ride.
type Availability struct {
	DriverID      string    `db:"driver_id" json:"driver_id"`
	IsAvailable   bool      `db:"is_available" json:"is_available"`
	CurrentRideID *string   `db:"current_ride_id" json:"current_ride_id,omitempty"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Consistent checks that the flag and the ride binding agree.
func (a *Availability) Consistent() bool {
	return a.IsAvailable == (a.CurrentRideID == nil)
}

func (a *Availability) Clone() *Availability {
	c := *a
	c.CurrentRideID = cloneString(a.CurrentRideID)
	return &c
}
