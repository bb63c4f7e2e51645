package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carrental/internal/models"
)

func (db *DB) CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.BookingStatus]int64)
	for rows.Next() {
		var (
			status models.BookingStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (db *DB) SumRevenue(ctx context.Context, statuses []models.BookingStatus) (float64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	in, args := statusArgs(statuses)
	var total float64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM bookings WHERE status IN (`+in+`)`, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}

// MonthlyRevenue groups qualifying bookings created since the given instant by
// UTC calendar month. Months with no bookings produce no row.
func (db *DB) MonthlyRevenue(ctx context.Context, since time.Time, statuses []models.BookingStatus) ([]models.MonthlyRevenue, error) {
	result := make([]models.MonthlyRevenue, 0)
	if len(statuses) == 0 {
		return result, nil
	}
	in, args := statusArgs(statuses)
	args = append(args, since.UTC())

	query := `SELECT CAST(strftime('%Y', created_at) AS INTEGER) AS y,
			CAST(strftime('%m', created_at) AS INTEGER) AS m,
			COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM bookings
		WHERE status IN (` + in + `) AND julianday(created_at) >= julianday(?)
		GROUP BY y, m
		ORDER BY y ASC, m ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mr models.MonthlyRevenue
		if err := rows.Scan(&mr.Year, &mr.Month, &mr.Revenue, &mr.Count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue: %w", err)
		}
		result = append(result, mr)
	}
	return result, rows.Err()
}

func statusArgs(statuses []models.BookingStatus) (string, []interface{}) {
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(placeholders, ", "), args
}
