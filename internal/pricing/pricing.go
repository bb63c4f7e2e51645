// Package pricing computes rental duration and price for a date range.
package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"carrental/internal/domain"
	"carrental/internal/models"
)

const secondsPerDay = 24 * 60 * 60

// ParseDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	t, _, err := parseDate(s)
	return t, err
}

// parseDate also returns the layout the input was written in.
func parseDate(s string) (time.Time, string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, models.DateLayout, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: cannot parse date %q", domain.ErrInvalidDateRange, s)
	}
	return t, time.RFC3339, nil
}

// Days returns the rental length in whole days, rounding partial days up.
// Works on Unix seconds: time.Duration saturates after ~292 years.
func Days(start, end time.Time) (int, error) {
	secs := end.Unix() - start.Unix()
	nanos := end.Nanosecond() - start.Nanosecond()
	if nanos < 0 {
		secs--
		nanos += int(time.Second)
	}
	if secs < 0 || (secs == 0 && nanos == 0) {
		return 0, domain.ErrInvalidDateRange
	}

	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 || nanos != 0 {
		days++
	}
	return int(days), nil
}

// Compute prices a rental of pricePerDay over [start, end).
func Compute(start, end time.Time, pricePerDay float64) (int, float64, error) {
	if pricePerDay < 0 || math.IsNaN(pricePerDay) {
		return 0, 0, domain.ErrInvalidPrice
	}
	days, err := Days(start, end)
	if err != nil {
		return 0, 0, err
	}
	return days, float64(days) * pricePerDay, nil
}

// QuoteDates parses both dates and builds a quote for the given price.
func QuoteDates(startDate, endDate string, pricePerDay float64) (*models.Quote, error) {
	start, startLayout, err := parseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, endLayout, err := parseDate(endDate)
	if err != nil {
		return nil, err
	}
	days, amount, err := Compute(start, end, pricePerDay)
	if err != nil {
		return nil, err
	}
	// даты возвращаются с той же точностью, что и на входе
	return &models.Quote{
		StartDate:   start.Format(startLayout),
		EndDate:     end.Format(endLayout),
		TotalDays:   days,
		PricePerDay: pricePerDay,
		TotalAmount: amount,
	}, nil
}
