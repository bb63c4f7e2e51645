package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, car_id, customer_id, start_date, end_date, total_days, total_amount,
	status, created_at, updated_at`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.CarID, &b.CustomerID, &b.StartDate, &b.EndDate, &b.TotalDays, &b.TotalAmount,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := db.now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.CreatedAt = booking.CreatedAt.UTC()
	booking.UpdatedAt = booking.CreatedAt
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.CarID, booking.CustomerID, booking.StartDate.UTC(), booking.EndDate.UTC(),
		booking.TotalDays, booking.TotalAmount, booking.Status, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to get booking")
	}
	return b, nil
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

func (db *DB) ListBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateBookingStatus writes the status and the car availability flag in one
// transaction. A car deleted after booking is skipped silently.
func (db *DB) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus, carAvailable *bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var carID string
	err = tx.QueryRowContext(ctx, `SELECT car_id FROM bookings WHERE id = ?`, id).Scan(&carID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to load booking in tx: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, status, db.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if carAvailable != nil {
		result, err := tx.ExecContext(ctx, `UPDATE cars SET available = ? WHERE id = ?`, *carAvailable, carID)
		if err != nil {
			return fmt.Errorf("failed to update car availability: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			db.logger.Warn().Str("booking_id", id).Str("car_id", carID).Msg("booked car no longer exists")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}
	return nil
}
