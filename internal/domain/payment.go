package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodPaypal       PaymentMethod = "PAYPAL"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodPaypal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// Payment amounts are kept in cents to avoid floating-point rounding.
type Payment struct {
	ID             int64         `json:"id"`
	BookingID      int64         `json:"booking_id"`
	AmountCents    int64         `json:"amount_cents"`
	Method         PaymentMethod `json:"method"`
	Status         PaymentState  `json:"status"`
	TransactionID  string        `json:"transaction_id"`
	IdempotencyKey string        `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
