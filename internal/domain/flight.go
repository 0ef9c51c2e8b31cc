package domain

import "time"

type CabinClass string

const (
	CabinEconomy  CabinClass = "ECONOMY"
	CabinBusiness CabinClass = "BUSINESS"
	CabinFirst    CabinClass = "FIRST"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

type Flight struct {
	ID             int64      `json:"id"`
	FlightNumber   string     `json:"flight_number"`
	Airline        string     `json:"airline"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	DepartureTime  time.Time  `json:"departure_time"`
	ArrivalTime    time.Time  `json:"arrival_time"`
	PriceCents     int64      `json:"price_cents"`
	TotalSeats     int        `json:"total_seats"`
	AvailableSeats int        `json:"available_seats"`
	CabinClass     CabinClass `json:"cabin_class"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
