package domain

import (
	"context"
	"time"

	"carrental/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type CarRepository interface {
	ListCars(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	GetCar(ctx context.Context, id string) (*models.Car, error)
	CreateCar(ctx context.Context, car *models.Car) error
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id string) error
	ListBrands(ctx context.Context) ([]string, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error)
	// UpdateBookingStatus stores the new status and, when carAvailable is set,
	// the availability flag of the booked car.
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus, carAvailable *bool) error
	CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int64, error)
	SumRevenue(ctx context.Context, statuses []models.BookingStatus) (float64, error)
	MonthlyRevenue(ctx context.Context, since time.Time, statuses []models.BookingStatus) ([]models.MonthlyRevenue, error)
}

type Repository interface {
	CarRepository
	UserRepository
	BookingRepository
	Ping(ctx context.Context) error
	Close() error
}

type CatalogCache interface {
	GetBrands(ctx context.Context) ([]string, bool, error)
	SetBrands(ctx context.Context, brands []string, ttl time.Duration) error
	InvalidateBrands(ctx context.Context) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type CacheRepository interface {
	CatalogCache
	RateLimiter
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService is the polling side of the Bot API used by the owner bot.
type TelegramService interface {
	TelegramSender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
	GetSelf() tgbotapi.User
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.BookingDetails) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.BookingDetails, status string) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor models.Actor, carID, startDate, endDate string) (*models.BookingDetails, error)
	SetStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.BookingDetails, error)
	Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.BookingDetails, error)
	ListAll(ctx context.Context) ([]*models.BookingDetails, error)
	ListForCustomer(ctx context.Context, customerID string) ([]*models.BookingDetails, error)
	Quote(ctx context.Context, carID, startDate, endDate string) (*models.Quote, error)
}

type StatsService interface {
	GetStats(ctx context.Context) (*models.BookingStats, error)
}

type CarService interface {
	ListCars(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	GetCar(ctx context.Context, id string) (*models.Car, error)
	CreateCar(ctx context.Context, car *models.Car) error
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id string) error
	Brands(ctx context.Context) ([]string, error)
}

type UserService interface {
	Register(ctx context.Context, name, email, password, phone string, role models.Role) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Profile(ctx context.Context, id string) (*models.User, error)
	ListCustomers(ctx context.Context) ([]*models.User, error)
	GetCustomerWithBookings(ctx context.Context, id string) (*models.CustomerWithBookings, error)
}
