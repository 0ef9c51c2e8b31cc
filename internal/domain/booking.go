package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type PaymentState string

const (
	PaymentStatePending   PaymentState = "PENDING"
	PaymentStateCompleted PaymentState = "COMPLETED"
	PaymentStateFailed    PaymentState = "FAILED"
	PaymentStateRefunded  PaymentState = "REFUNDED"
)

type Booking struct {
	ID               int64         `json:"id"`
	Reference        string        `json:"reference"`
	UserID           int64         `json:"user_id"`
	FlightID         int64         `json:"flight_id"`
	Passengers       int           `json:"passengers"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentState  `json:"payment_status"`
	ContactEmail     string        `json:"contact_email"`
	ContactPhone     string        `json:"contact_phone"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
