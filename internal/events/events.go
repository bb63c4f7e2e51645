package events

import (
	"encoding/json"
	"sync"
	"time"

	"carrental/internal/models"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingApproved  = "booking_approved"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventBookingReopened  = "booking_reopened"
)

// AllBookingEvents lists every lifecycle event type.
var AllBookingEvents = []string{
	EventBookingCreated,
	EventBookingApproved,
	EventBookingRejected,
	EventBookingCancelled,
	EventBookingCompleted,
	EventBookingReopened,
}

// EventForStatus maps the status a booking entered to its event type.
func EventForStatus(status models.BookingStatus) string {
	switch status {
	case models.StatusApproved:
		return EventBookingApproved
	case models.StatusRejected:
		return EventBookingRejected
	case models.StatusCancelled:
		return EventBookingCancelled
	case models.StatusCompleted:
		return EventBookingCompleted
	default:
		return EventBookingReopened
	}
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID      string               `json:"booking_id"`
	CarID          string               `json:"car_id"`
	CarName        string               `json:"car_name,omitempty"`
	CustomerID     string               `json:"customer_id"`
	CustomerName   string               `json:"customer_name,omitempty"`
	CustomerEmail  string               `json:"customer_email,omitempty"`
	StartDate      time.Time            `json:"start_date"`
	EndDate        time.Time            `json:"end_date"`
	TotalDays      int                  `json:"total_days"`
	TotalAmount    float64              `json:"total_amount"`
	Status         models.BookingStatus `json:"status"`
	PreviousStatus models.BookingStatus `json:"previous_status,omitempty"`
	ChangedBy      string               `json:"changed_by,omitempty"`
}

// NewBookingPayload snapshots a joined booking for publishing.
func NewBookingPayload(d *models.BookingDetails, previous models.BookingStatus, changedBy string) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:      d.ID,
		CarID:          d.CarID,
		CustomerID:     d.CustomerID,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		TotalDays:      d.TotalDays,
		TotalAmount:    d.TotalAmount,
		Status:         d.Status,
		PreviousStatus: previous,
		ChangedBy:      changedBy,
	}
	if d.Car != nil {
		p.CarName = d.Car.Brand + " " + d.Car.Name
	}
	if d.Customer != nil {
		p.CustomerName = d.Customer.Name
		p.CustomerEmail = d.Customer.Email
	}
	return p
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     func(event *Event, err error)
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs a hook for handler failures.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers the handler for every booking lifecycle event.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range AllBookingEvents {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

// DecodeBooking unmarshals a booking lifecycle payload.
func DecodeBooking(event *Event) (BookingEventPayload, error) {
	var p BookingEventPayload
	err := json.Unmarshal(event.Payload, &p)
	return p, err
}
