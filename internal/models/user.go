package models

import (
	"time"
)

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

func (r Role) IsValid() bool {
	return r == RoleRider || r == RoleDriver
}

// Payment methods a rider can keep on file
const (
	PaymentMethodCreditCard    = "credit_card"
	PaymentMethodDebitCard     = "debit_card"
	PaymentMethodCash          = "cash"
	PaymentMethodDigitalWallet = "digital_wallet"
)

var PaymentMethods = []string{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodCash,
	PaymentMethodDigitalWallet,
}

func IsValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// User is a participant. Role selects which profile is populated.
type User struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Phone     string         `json:"phone"`
	Name      string         `json:"name"`
	Email     *string        `json:"email,omitempty"`
	Rating    float64        `json:"rating"`
	RideCount int            `json:"ride_count"`
	Rider     *RiderProfile  `json:"rider,omitempty"`
	Driver    *DriverProfile `json:"driver,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type RiderProfile struct {
	PaymentMethods []string `json:"payment_methods"`
}

type CreateRiderRequest struct {
	Phone          string   `json:"phone" validate:"required,min=10,max=15,numeric"`
	Name           string   `json:"name" validate:"required,min=2,max=100"`
	Email          string   `json:"email,omitempty" validate:"omitempty,email"`
	PaymentMethods []string `json:"payment_methods,omitempty" validate:"omitempty,dive,oneof=credit_card debit_card cash digital_wallet"`
}

type UserResponse struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Phone     string         `json:"phone"`
	Name      string         `json:"name"`
	Email     *string        `json:"email,omitempty"`
	Rating    float64        `json:"rating"`
	RideCount int            `json:"ride_count"`
	Rider     *RiderProfile  `json:"rider,omitempty"`
	Driver    *DriverProfile `json:"driver,omitempty"`
	Token     string         `json:"token,omitempty"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Role:      u.Role,
		Phone:     u.Phone,
		Name:      u.Name,
		Email:     u.Email,
		Rating:    u.Rating,
		RideCount: u.RideCount,
		Rider:     u.Rider,
		Driver:    u.Driver,
	}
}

func (u *User) IsDriver() bool {
	return u.Role == RoleDriver
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.Email = cloneString(u.Email)
	if u.Rider != nil {
		rp := *u.Rider
		rp.PaymentMethods = append([]string(nil), u.Rider.PaymentMethods...)
		c.Rider = &rp
	}
	if u.Driver != nil {
		dp := *u.Driver
		c.Driver = &dp
	}
	return &c
}
