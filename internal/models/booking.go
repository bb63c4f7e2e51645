package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCompleted, StatusCancelled},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusCompleted: {},
}

// RevenueStatuses are the statuses whose amounts count as earned revenue.
var RevenueStatuses = []BookingStatus{StatusApproved, StatusCompleted}

func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsCancellable reports whether a customer may still cancel.
func (s BookingStatus) IsCancellable() bool {
	return s == StatusPending || s == StatusApproved
}

// CarAvailability returns the availability flag a car takes when one of its
// bookings enters s, and false for ok when the car is left untouched.
func (s BookingStatus) CarAvailability() (available, ok bool) {
	switch s {
	case StatusApproved:
		return false, true
	case StatusCancelled, StatusRejected, StatusCompleted:
		return true, true
	default:
		return false, false
	}
}

func (s BookingStatus) String() string {
	return string(s)
}

// Booking is a customer's request for a car over a date range. TotalDays and
// TotalAmount are fixed at creation.
type Booking struct {
	ID          string        `json:"id" bson:"_id"`
	CarID       string        `json:"carId" bson:"car_id"`
	CustomerID  string        `json:"customerId" bson:"customer_id"`
	StartDate   time.Time     `json:"startDate" bson:"start_date"`
	EndDate     time.Time     `json:"endDate" bson:"end_date"`
	TotalDays   int           `json:"totalDays" bson:"total_days"`
	TotalAmount float64       `json:"totalAmount" bson:"total_amount"`
	Status      BookingStatus `json:"status" bson:"status"`
	CreatedAt   time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updated_at"`
}

// BookingDetails is a booking joined with its car and redacted customer.
// Car is nil when the car was deleted after booking.
type BookingDetails struct {
	*Booking
	Car      *Car  `json:"car"`
	Customer *User `json:"customer"`
}
