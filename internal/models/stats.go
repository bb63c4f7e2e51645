package models

type MonthlyRevenue struct {
	Year    int     `json:"year" bson:"year"`
	Month   int     `json:"month" bson:"month"`
	Revenue float64 `json:"revenue" bson:"revenue"`
	Count   int64   `json:"count" bson:"count"`
}

type BookingStats struct {
	TotalBookings     int64            `json:"totalBookings"`
	PendingBookings   int64            `json:"pendingBookings"`
	ApprovedBookings  int64            `json:"approvedBookings"`
	CompletedBookings int64            `json:"completedBookings"`
	TotalRevenue      float64          `json:"totalRevenue"`
	MonthlyRevenue    []MonthlyRevenue `json:"monthlyRevenue"`
}

// Quote is the price of renting a car over a date range.
type Quote struct {
	CarID       string  `json:"carId,omitempty"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	TotalDays   int     `json:"totalDays"`
	PricePerDay float64 `json:"pricePerDay"`
	TotalAmount float64 `json:"totalAmount"`
}
