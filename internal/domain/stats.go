package domain

// DashboardStats is the read-only aggregate shape served to admins.
type DashboardStats struct {
	Users            int64                   `json:"users"`
	Flights          int64                   `json:"flights"`
	Bookings         int64                   `json:"bookings"`
	Payments         int64                   `json:"payments"`
	RevenueCents     int64                   `json:"revenue_cents"`
	RevenueByMonth   []MonthlyRevenue        `json:"revenue_by_month"`
	BookingsByStatus map[BookingStatus]int64 `json:"bookings_by_status"`
}

type MonthlyRevenue struct {
	Month        string `json:"month"`
	RevenueCents int64  `json:"revenue_cents"`
}
