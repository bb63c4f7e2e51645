package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/models"
	"carrental/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func date(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

type bookingFixture struct {
	repo    *mockRepo
	limiter *mockLimiter
	bus     *mockPublisher
	worker  *mockSyncWorker
	svc     *BookingService
}

func newBookingFixture(opts BookingOptions) *bookingFixture {
	f := &bookingFixture{
		repo:    new(mockRepo),
		limiter: new(mockLimiter),
		bus:     new(mockPublisher),
		worker:  new(mockSyncWorker),
	}
	f.svc = NewBookingService(f.repo, f.limiter, f.bus, f.worker, opts, nil)
	return f
}

func (f *bookingFixture) expectSideEffects(eventType, taskType string) {
	f.bus.On("PublishJSON", eventType, mock.AnythingOfType("events.BookingEventPayload")).Return(nil).Once()
	f.worker.On("EnqueueTask", mock.Anything, taskType, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
}

func TestCreateBooking_Success(t *testing.T) {
	f := newBookingFixture(BookingOptions{})
	ctx := context.Background()
	actor := models.Actor{ID: "cust-1", Role: models.RoleCustomer}
	car := &models.Car{ID: "car-1", Name: "Civic", Brand: "Honda", PricePerDay: 1000, Available: true}

	f.repo.On("GetCar", ctx, "car-1").Return(car, nil)
	f.repo.On("CreateBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
		return b.TotalDays == 3 && b.TotalAmount == 3000 && b.Status == models.StatusPending &&
			b.CustomerID == "cust-1" && b.CarID == "car-1"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Booking).ID = "b-1"
	}).Return(nil)
	f.repo.On("GetUserByID", ctx, "cust-1").
		Return(&models.User{ID: "cust-1", Name: "Cara", PasswordHash: "hash"}, nil)
	f.expectSideEffects(events.EventBookingCreated, models.SyncTaskUpsert)

	details, err := f.svc.CreateBooking(ctx, actor, "car-1", "2024-01-01", "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, "b-1", details.ID)
	assert.Equal(t, 3, details.TotalDays)
	assert.Equal(t, 3000.0, details.TotalAmount)
	assert.Equal(t, car, details.Car)
	require.NotNil(t, details.Customer)
	assert.Empty(t, details.Customer.PasswordHash)

	// создание не трогает доступность машины
	f.repo.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.bus.AssertExpectations(t)
	f.worker.AssertExpectations(t)
}

func TestCreateBooking_Errors(t *testing.T) {
	ctx := context.Background()
	actor := models.Actor{ID: "cust-1", Role: models.RoleCustomer}

	t.Run("car not found", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetCar", ctx, "missing").Return(nil, domain.ErrNotFound)
		_, err := f.svc.CreateBooking(ctx, actor, "missing", "2024-01-01", "2024-01-04")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("car unavailable", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", Available: false}, nil)
		_, err := f.svc.CreateBooking(ctx, actor, "car-1", "2024-01-01", "2024-01-04")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("unavailable wins over bad dates", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", Available: false}, nil)
		_, err := f.svc.CreateBooking(ctx, actor, "car-1", "2024-01-04", "2024-01-01")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	for name, dates := range map[string][2]string{
		"same day":    {"2024-01-01", "2024-01-01"},
		"end before":  {"2024-01-05", "2024-01-01"},
		"unparseable": {"yesterday", "2024-01-01"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newBookingFixture(BookingOptions{})
			f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", Available: true, PricePerDay: 10}, nil)
			_, err := f.svc.CreateBooking(ctx, actor, "car-1", dates[0], dates[1])
			assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
			f.repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", Available: true, PricePerDay: 10}, nil)
		f.repo.On("CreateBooking", ctx, mock.Anything).Return(errors.New("disk full"))
		_, err := f.svc.CreateBooking(ctx, actor, "car-1", "2024-01-01", "2024-01-02")
		assert.EqualError(t, err, "disk full")
		f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})
}

func TestCreateBooking_RateLimit(t *testing.T) {
	ctx := context.Background()
	actor := models.Actor{ID: "cust-1", Role: models.RoleCustomer}

	f := newBookingFixture(BookingOptions{CreateLimit: 2, CreateWindow: time.Hour})
	f.limiter.On("CheckRateLimit", ctx, "booking_create:cust-1", 2, time.Hour).Return(false, nil)

	_, err := f.svc.CreateBooking(ctx, actor, "car-1", "2024-01-01", "2024-01-02")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	f.repo.AssertNotCalled(t, "GetCar", mock.Anything, mock.Anything)

	// limiter outage does not block creation
	f = newBookingFixture(BookingOptions{CreateLimit: 2, CreateWindow: time.Hour})
	f.limiter.On("CheckRateLimit", ctx, "booking_create:cust-1", 2, time.Hour).Return(false, errors.New("redis down"))
	f.repo.On("GetCar", ctx, "car-1").Return(nil, domain.ErrNotFound)
	_, err = f.svc.CreateBooking(ctx, actor, "car-1", "2024-01-01", "2024-01-02")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetStatus_SideEffects(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		status   models.BookingStatus
		avail    *bool
		event    string
		previous models.BookingStatus
	}{
		{models.StatusApproved, boolPtr(false), events.EventBookingApproved, models.StatusPending},
		{models.StatusRejected, boolPtr(true), events.EventBookingRejected, models.StatusPending},
		{models.StatusCancelled, boolPtr(true), events.EventBookingCancelled, models.StatusApproved},
		{models.StatusCompleted, boolPtr(true), events.EventBookingCompleted, models.StatusApproved},
		{models.StatusPending, nil, events.EventBookingReopened, models.StatusRejected},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newBookingFixture(BookingOptions{})
			before := &models.Booking{ID: "b-1", CarID: "car-1", CustomerID: "cust-1", Status: tc.previous}
			after := &models.Booking{ID: "b-1", CarID: "car-1", CustomerID: "cust-1", Status: tc.status}

			f.repo.On("GetBooking", ctx, "b-1").Return(before, nil).Once()
			f.repo.On("UpdateBookingStatus", ctx, "b-1", tc.status, tc.avail).Return(nil).Once()
			f.repo.On("GetBooking", ctx, "b-1").Return(after, nil).Once()
			f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1"}, nil)
			f.repo.On("GetUserByID", ctx, "cust-1").Return(&models.User{ID: "cust-1"}, nil)
			f.expectSideEffects(tc.event, models.SyncTaskUpdateStatus)

			details, err := f.svc.SetStatus(ctx, "b-1", tc.status)
			require.NoError(t, err)
			assert.Equal(t, tc.status, details.Status)
			f.repo.AssertExpectations(t)
			f.bus.AssertExpectations(t)
		})
	}
}

func TestSetStatus_LenientAllowsAnyValidStatus(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(BookingOptions{})

	completed := &models.Booking{ID: "b-1", CarID: "car-1", CustomerID: "cust-1", Status: models.StatusCompleted}
	approved := &models.Booking{ID: "b-1", CarID: "car-1", CustomerID: "cust-1", Status: models.StatusApproved}
	f.repo.On("GetBooking", ctx, "b-1").Return(completed, nil).Once()
	f.repo.On("UpdateBookingStatus", ctx, "b-1", models.StatusApproved, boolPtr(false)).Return(nil)
	f.repo.On("GetBooking", ctx, "b-1").Return(approved, nil).Once()
	f.repo.On("GetCar", ctx, "car-1").Return(nil, domain.ErrNotFound)
	f.repo.On("GetUserByID", ctx, "cust-1").Return(nil, domain.ErrNotFound)
	f.expectSideEffects(events.EventBookingApproved, models.SyncTaskUpdateStatus)

	details, err := f.svc.SetStatus(ctx, "b-1", models.StatusApproved)
	require.NoError(t, err)
	assert.Nil(t, details.Car)
	assert.Nil(t, details.Customer)
}

func TestSetStatus_Strict(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(BookingOptions{StrictTransitions: true})

	f.repo.On("GetBooking", ctx, "b-1").Return(&models.Booking{ID: "b-1", Status: models.StatusCompleted}, nil)

	_, err := f.svc.SetStatus(ctx, "b-1", models.StatusApproved)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.repo.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatus_Errors(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(BookingOptions{})

	_, err := f.svc.SetStatus(ctx, "b-1", models.BookingStatus("archived"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	f.repo.On("GetBooking", ctx, "missing").Return(nil, domain.ErrNotFound)
	_, err = f.svc.SetStatus(ctx, "missing", models.StatusApproved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	owner := models.Actor{ID: "cust-1", Role: models.RoleCustomer}

	t.Run("own approved booking", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetBooking", ctx, "b-1").
			Return(&models.Booking{ID: "b-1", CarID: "car-1", CustomerID: "cust-1", Status: models.StatusApproved}, nil).Once()
		f.repo.On("UpdateBookingStatus", ctx, "b-1", models.StatusCancelled, boolPtr(true)).Return(nil).Once()
		f.repo.On("GetBooking", ctx, "b-1").
			Return(&models.Booking{ID: "b-1", CarID: "car-1", CustomerID: "cust-1", Status: models.StatusCancelled}, nil).Once()
		f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", Available: true}, nil)
		f.repo.On("GetUserByID", ctx, "cust-1").Return(&models.User{ID: "cust-1"}, nil)
		f.expectSideEffects(events.EventBookingCancelled, models.SyncTaskUpdateStatus)

		details, err := f.svc.Cancel(ctx, owner, "b-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, details.Status)
		f.repo.AssertExpectations(t)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetBooking", ctx, "b-1").
			Return(&models.Booking{ID: "b-1", CustomerID: "other", Status: models.StatusPending}, nil)
		_, err := f.svc.Cancel(ctx, owner, "b-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("terminal booking", func(t *testing.T) {
		for _, st := range []models.BookingStatus{models.StatusRejected, models.StatusCompleted, models.StatusCancelled} {
			f := newBookingFixture(BookingOptions{})
			f.repo.On("GetBooking", ctx, "b-1").
				Return(&models.Booking{ID: "b-1", CustomerID: "cust-1", Status: st}, nil)
			_, err := f.svc.Cancel(ctx, owner, "b-1")
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, st)
			f.repo.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("missing", func(t *testing.T) {
		f := newBookingFixture(BookingOptions{})
		f.repo.On("GetBooking", ctx, "b-x").Return(nil, domain.ErrNotFound)
		_, err := f.svc.Cancel(ctx, owner, "b-x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListAll_JoinsOncePerCar(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(BookingOptions{})

	bookings := []*models.Booking{
		{ID: "b-2", CarID: "car-1", CustomerID: "cust-1", StartDate: date("2024-02-01")},
		{ID: "b-1", CarID: "car-1", CustomerID: "cust-2", StartDate: date("2024-01-01")},
	}
	f.repo.On("ListBookings", ctx).Return(bookings, nil)
	f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1"}, nil).Once()
	f.repo.On("GetUserByID", ctx, "cust-1").Return(&models.User{ID: "cust-1", PasswordHash: "x"}, nil).Once()
	f.repo.On("GetUserByID", ctx, "cust-2").Return(nil, domain.ErrNotFound).Once()

	list, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b-2", list[0].ID)
	assert.Same(t, list[0].Car, list[1].Car)
	assert.Empty(t, list[0].Customer.PasswordHash)
	assert.Nil(t, list[1].Customer)
	f.repo.AssertExpectations(t)
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(BookingOptions{})
	f.repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", PricePerDay: 1000}, nil)

	q, err := f.svc.Quote(ctx, "car-1", "2024-01-01", "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, "car-1", q.CarID)
	assert.Equal(t, 3, q.TotalDays)
	assert.Equal(t, 3000.0, q.TotalAmount)

	_, err = f.svc.Quote(ctx, "car-1", "2024-01-04", "2024-01-04")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestSideEffectFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(BookingOptions{})
	car := &models.Car{ID: "car-1", PricePerDay: 50, Available: true}

	f.repo.On("GetCar", ctx, "car-1").Return(car, nil)
	f.repo.On("CreateBooking", ctx, mock.Anything).Return(nil)
	f.repo.On("GetUserByID", ctx, "cust-1").Return(nil, errors.New("timeout"))
	f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus closed"))
	f.worker.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue full"))

	details, err := f.svc.CreateBooking(ctx, models.Actor{ID: "cust-1"}, "car-1", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, 50.0, details.TotalAmount)
}

// stalledSender blocks every Send until release is closed.
type stalledSender struct {
	release chan struct{}
	sent    chan struct{}
}

func (s *stalledSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-s.release
	s.sent <- struct{}{}
	return tgbotapi.Message{}, nil
}

func TestCreateBooking_DoesNotWaitForTelegram(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &stalledSender{release: make(chan struct{}), sent: make(chan struct{}, 2)}
	defer close(sender.release)
	notifier := notify.NewTelegramNotifier(sender, []int64{1, 2}, nil)
	bus := events.NewEventBus()
	notifier.Subscribe(bus)
	go notifier.Start(ctx)

	repo := new(mockRepo)
	worker := new(mockSyncWorker)
	svc := NewBookingService(repo, new(mockLimiter), bus, worker, BookingOptions{}, nil)

	repo.On("GetCar", ctx, "car-1").Return(&models.Car{ID: "car-1", PricePerDay: 40, Available: true}, nil)
	repo.On("CreateBooking", ctx, mock.Anything).Return(nil)
	repo.On("GetUserByID", ctx, "cust-1").Return(&models.User{ID: "cust-1"}, nil)
	worker.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	type result struct {
		details *models.BookingDetails
		err     error
	}
	done := make(chan result, 1)
	go func() {
		d, err := svc.CreateBooking(ctx, models.Actor{ID: "cust-1"}, "car-1", "2024-03-01", "2024-03-03")
		done <- result{d, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 80.0, r.details.TotalAmount)
	case <-time.After(time.Second):
		t.Fatal("CreateBooking waited for telegram delivery")
	}
	assert.Empty(t, sender.sent)
}
