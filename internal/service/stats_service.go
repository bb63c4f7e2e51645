package service

import (
	"context"
	"time"

	"carrental/internal/domain"
	"carrental/internal/models"
)

type StatsService struct {
	repo         domain.BookingRepository
	windowMonths int
	now          func() time.Time
}

func NewStatsService(repo domain.BookingRepository, windowMonths int) *StatsService {
	if windowMonths <= 0 {
		windowMonths = models.DefaultStatsWindowMonths
	}
	return &StatsService{repo: repo, windowMonths: windowMonths, now: time.Now}
}

// GetStats counts bookings by status, sums earned revenue and builds the
// trailing monthly series. Months without revenue bookings are absent.
func (s *StatsService) GetStats(ctx context.Context) (*models.BookingStats, error) {
	counts, err := s.repo.CountBookingsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	revenue, err := s.repo.SumRevenue(ctx, models.RevenueStatuses)
	if err != nil {
		return nil, err
	}

	since := s.now().UTC().AddDate(0, -s.windowMonths, 0)
	monthly, err := s.repo.MonthlyRevenue(ctx, since, models.RevenueStatuses)
	if err != nil {
		return nil, err
	}
	if monthly == nil {
		monthly = []models.MonthlyRevenue{}
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	return &models.BookingStats{
		TotalBookings:     total,
		PendingBookings:   counts[models.StatusPending],
		ApprovedBookings:  counts[models.StatusApproved],
		CompletedBookings: counts[models.StatusCompleted],
		TotalRevenue:      revenue,
		MonthlyRevenue:    monthly,
	}, nil
}
