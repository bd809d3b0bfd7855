package models

import (
	"time"
)

type PaymentStatus string

// Payment status constants
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

type Payment struct {
	ID        string        `db:"id" json:"id"`
	RideID    string        `db:"ride_id" json:"ride_id"`
	UserID    string        `db:"user_id" json:"user_id"`
	DriverID  string        `db:"driver_id" json:"driver_id"`
	Amount    float64       `db:"amount" json:"amount"`
	Method    string        `db:"method" json:"method"`
	Status    PaymentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

type CreatePaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=credit_card debit_card cash digital_wallet"`
}

type PaymentResponse struct {
	ID        string        `json:"id"`
	RideID    string        `json:"ride_id"`
	Amount    float64       `json:"amount"`
	Method    string        `json:"method"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (p *Payment) ToResponse() *PaymentResponse {
	return &PaymentResponse{
		ID:        p.ID,
		RideID:    p.RideID,
		Amount:    p.Amount,
		Method:    p.Method,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

// Earnings summarises a driver's income over completed rides.
type Earnings struct {
	DriverID  string  `json:"driver_id"`
	Total     float64 `json:"total"`
	RideCount int     `json:"ride_count"`
	Year      int     `json:"year,omitempty"`
	Month     int     `json:"month,omitempty"`
}
