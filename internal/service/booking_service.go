package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/metrics"
	"carrental/internal/models"
	"carrental/internal/pricing"

	"github.com/rs/zerolog"
)

// BookingOptions tunes lifecycle checks.
type BookingOptions struct {
	// StrictTransitions rejects moves not allowed by the status table.
	StrictTransitions bool
	CreateLimit       int
	CreateWindow      time.Duration
}

type BookingService struct {
	repo       domain.Repository
	limiter    domain.RateLimiter
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	opts       BookingOptions
	logger     *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	limiter domain.RateLimiter,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	opts BookingOptions,
	logger *zerolog.Logger,
) *BookingService {
	if opts.CreateWindow <= 0 {
		opts.CreateWindow = models.DefaultBookingCreateWindow
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		repo:       repo,
		limiter:    limiter,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		opts:       opts,
		logger:     logger,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, carID, startDate, endDate string) (*models.BookingDetails, error) {
	if err := s.checkCreateLimit(ctx, actor.ID); err != nil {
		metrics.IncBookingError("create", "rate_limited")
		return nil, err
	}

	// Сначала машина, потом даты
	car, err := s.repo.GetCar(ctx, carID)
	if err != nil {
		s.countError("create", err)
		return nil, err
	}
	if !car.Available {
		metrics.IncBookingError("create", "unavailable")
		return nil, domain.ErrUnavailable
	}

	start, err := pricing.ParseDate(startDate)
	if err != nil {
		metrics.IncBookingError("create", "invalid_date_range")
		return nil, err
	}
	end, err := pricing.ParseDate(endDate)
	if err != nil {
		metrics.IncBookingError("create", "invalid_date_range")
		return nil, err
	}
	days, amount, err := pricing.Compute(start, end, car.PricePerDay)
	if err != nil {
		s.countError("create", err)
		return nil, err
	}

	booking := &models.Booking{
		CarID:       car.ID,
		CustomerID:  actor.ID,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   days,
		TotalAmount: amount,
		Status:      models.StatusPending,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}
	metrics.IncBookingCreated()

	details := &models.BookingDetails{Booking: booking, Car: car, Customer: s.customer(ctx, actor.ID)}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("car_id", car.ID).
		Str("customer_id", actor.ID).
		Int("total_days", days).
		Float64("total_amount", amount).
		Msg("booking created")

	s.publishEvent(events.EventBookingCreated, details, "", actor.ID)
	s.enqueueSync(ctx, details, models.SyncTaskUpsert)

	return details, nil
}

// SetStatus applies an owner decision. Role checks belong to the caller.
func (s *BookingService) SetStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.BookingDetails, error) {
	if !status.IsValid() {
		metrics.IncBookingError("set_status", "invalid_status")
		return nil, domain.ErrInvalidStatus
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.countError("set_status", err)
		return nil, err
	}
	previous := booking.Status

	if s.opts.StrictTransitions && !previous.CanTransitionTo(status) {
		metrics.IncBookingError("set_status", "invalid_transition")
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, previous, status)
	}

	var carAvailable *bool
	if available, ok := status.CarAvailability(); ok {
		carAvailable = &available
	}
	if err := s.repo.UpdateBookingStatus(ctx, bookingID, status, carAvailable); err != nil {
		s.countError("set_status", err)
		return nil, err
	}
	metrics.IncStatusChange(string(status))

	details, err := s.reload(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("booking status changed")

	s.publishEvent(events.EventForStatus(status), details, previous, "owner")
	s.enqueueSync(ctx, details, models.SyncTaskUpdateStatus)

	return details, nil
}

// Cancel lets a customer withdraw their own pending or approved booking.
func (s *BookingService) Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.BookingDetails, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.countError("cancel", err)
		return nil, err
	}
	if booking.CustomerID != actor.ID {
		metrics.IncBookingError("cancel", "forbidden")
		return nil, domain.ErrForbidden
	}
	if !booking.Status.IsCancellable() {
		metrics.IncBookingError("cancel", "invalid_transition")
		return nil, fmt.Errorf("%w: cannot cancel %s booking", domain.ErrInvalidTransition, booking.Status)
	}

	available := true
	if err := s.repo.UpdateBookingStatus(ctx, bookingID, models.StatusCancelled, &available); err != nil {
		return nil, err
	}
	metrics.IncStatusChange(string(models.StatusCancelled))

	details, err := s.reload(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCancelled, details, booking.Status, actor.ID)
	s.enqueueSync(ctx, details, models.SyncTaskUpdateStatus)

	return details, nil
}

func (s *BookingService) ListAll(ctx context.Context) ([]*models.BookingDetails, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	return s.joinAll(ctx, bookings), nil
}

func (s *BookingService) ListForCustomer(ctx context.Context, customerID string) ([]*models.BookingDetails, error) {
	bookings, err := s.repo.ListBookingsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.joinAll(ctx, bookings), nil
}

func (s *BookingService) Get(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	return s.reload(ctx, bookingID)
}

// Quote prices a prospective rental without creating anything.
func (s *BookingService) Quote(ctx context.Context, carID, startDate, endDate string) (*models.Quote, error) {
	car, err := s.repo.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	quote, err := pricing.QuoteDates(startDate, endDate, car.PricePerDay)
	if err != nil {
		return nil, err
	}
	quote.CarID = car.ID
	return quote, nil
}

func (s *BookingService) checkCreateLimit(ctx context.Context, customerID string) error {
	if s.limiter == nil || s.opts.CreateLimit <= 0 {
		return nil
	}
	allowed, err := s.limiter.CheckRateLimit(ctx, "booking_create:"+customerID, s.opts.CreateLimit, s.opts.CreateWindow)
	if err != nil {
		// Лимитер недоступен, не блокируем клиента
		s.logger.Warn().Err(err).Str("customer_id", customerID).Msg("rate limit check failed")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func (s *BookingService) reload(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, booking, nil, nil), nil
}

func (s *BookingService) joinAll(ctx context.Context, bookings []*models.Booking) []*models.BookingDetails {
	cars := make(map[string]*models.Car)
	users := make(map[string]*models.User)
	out := make([]*models.BookingDetails, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, s.join(ctx, b, cars, users))
	}
	return out
}

// join attaches the car and redacted customer; missing ones stay nil.
func (s *BookingService) join(ctx context.Context, b *models.Booking, cars map[string]*models.Car, users map[string]*models.User) *models.BookingDetails {
	details := &models.BookingDetails{Booking: b}

	if car, ok := cars[b.CarID]; ok {
		details.Car = car
	} else {
		car, err := s.repo.GetCar(ctx, b.CarID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("car_id", b.CarID).Msg("load booking car")
		}
		if cars != nil {
			cars[b.CarID] = car
		}
		details.Car = car
	}

	if user, ok := users[b.CustomerID]; ok {
		details.Customer = user
	} else {
		user := s.customer(ctx, b.CustomerID)
		if users != nil {
			users[b.CustomerID] = user
		}
		details.Customer = user
	}

	return details
}

func (s *BookingService) customer(ctx context.Context, id string) *models.User {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("customer_id", id).Msg("load booking customer")
		}
		return nil
	}
	return user.Redacted()
}

func (s *BookingService) countError(op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncBookingError(op, "not_found")
	case errors.Is(err, domain.ErrInvalidDateRange):
		metrics.IncBookingError(op, "invalid_date_range")
	case errors.Is(err, domain.ErrInvalidPrice):
		metrics.IncBookingError(op, "invalid_price")
	default:
		metrics.IncBookingError(op, "internal")
	}
}

func (s *BookingService) publishEvent(eventType string, details *models.BookingDetails, previous models.BookingStatus, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.NewBookingPayload(details, previous, changedBy)
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", details.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, details *models.BookingDetails, taskType string) {
	if s.syncWorker == nil {
		return
	}

	var status string
	if taskType == models.SyncTaskUpdateStatus {
		status = string(details.Status)
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, details.ID, details, status); err != nil {
		s.logger.Error().Err(err).Str("booking_id", details.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
