package models

import "time"

const DateLayout = "2006-01-02"

const (
	DefaultCarImage = "https://via.placeholder.com/400x250?text=Car+Image"
	DefaultCarSeats = 5

	// DefaultStatsWindowMonths is the trailing window of the monthly revenue series.
	DefaultStatsWindowMonths = 6

	// BrandsCacheTTL время жизни кэша списка марок
	BrandsCacheTTL = 10 * time.Minute

	// DefaultBookingCreateLimit заявок на клиента в окне
	DefaultBookingCreateLimit  = 10
	DefaultBookingCreateWindow = time.Hour

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = time.Hour
)
