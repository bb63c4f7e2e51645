package service

import (
	"context"
	"time"

	"carrental/internal/models"

	"github.com/stretchr/testify/mock"
)

var anyTime = mock.AnythingOfType("time.Time")

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListCars(ctx context.Context, f models.CarFilter) ([]*models.Car, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Car), args.Error(1)
}
func (m *mockRepo) GetCar(ctx context.Context, id string) (*models.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}
func (m *mockRepo) CreateCar(ctx context.Context, c *models.Car) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockRepo) UpdateCar(ctx context.Context, c *models.Car) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockRepo) DeleteCar(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) ListBrands(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) ListUsersByRole(ctx context.Context, r models.Role) ([]*models.User, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}
func (m *mockRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) ListBookingsByCustomer(ctx context.Context, id string) ([]*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatus(ctx context.Context, id string, s models.BookingStatus, avail *bool) error {
	return m.Called(ctx, id, s, avail).Error(0)
}
func (m *mockRepo) CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.BookingStatus]int64), args.Error(1)
}
func (m *mockRepo) SumRevenue(ctx context.Context, st []models.BookingStatus) (float64, error) {
	args := m.Called(ctx, st)
	return args.Get(0).(float64), args.Error(1)
}
func (m *mockRepo) MonthlyRevenue(ctx context.Context, since time.Time, st []models.BookingStatus) ([]models.MonthlyRevenue, error) {
	args := m.Called(ctx, since, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MonthlyRevenue), args.Error(1)
}
func (m *mockRepo) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockRepo) Close() error                   { return m.Called().Error(0) }

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType, bookingID string, b *models.BookingDetails, status string) error {
	return m.Called(ctx, taskType, bookingID, b, status).Error(0)
}

type mockCatalogCache struct {
	mock.Mock
}

func (m *mockCatalogCache) GetBrands(ctx context.Context) ([]string, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}
func (m *mockCatalogCache) SetBrands(ctx context.Context, brands []string, ttl time.Duration) error {
	return m.Called(ctx, brands, ttl).Error(0)
}
func (m *mockCatalogCache) InvalidateBrands(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
