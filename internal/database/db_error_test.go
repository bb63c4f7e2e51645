package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewWithConn(conn, nil), mock
}

func TestDB_ErrorPaths(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	t.Run("ListCars", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT .* FROM cars").WillReturnError(boom)
		_, err := db.ListCars(ctx, models.CarFilter{})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreateBooking", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO bookings").WillReturnError(boom)
		err := db.CreateBooking(ctx, &models.Booking{CarID: "c", CustomerID: "u"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("UpdateCarRowsAffectedZero", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("UPDATE cars").WillReturnResult(sqlmock.NewResult(0, 0))
		err := db.UpdateCar(ctx, &models.Car{ID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("UpdateStatusRollsBackOnCarFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT car_id FROM bookings").
			WithArgs("b1").
			WillReturnRows(sqlmock.NewRows([]string{"car_id"}).AddRow("c1"))
		mock.ExpectExec("UPDATE bookings SET status").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE cars SET available").WillReturnError(boom)
		mock.ExpectRollback()

		available := true
		err := db.UpdateBookingStatus(ctx, "b1", models.StatusCancelled, &available)
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UpdateStatusCommits", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT car_id FROM bookings").
			WillReturnRows(sqlmock.NewRows([]string{"car_id"}).AddRow("c1"))
		mock.ExpectExec("UPDATE bookings SET status").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE cars SET available").
			WithArgs(false, "c1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		unavailable := false
		require.NoError(t, db.UpdateBookingStatus(ctx, "b1", models.StatusApproved, &unavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MonthlyRevenue", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT CAST").WillReturnError(boom)
		_, err := db.MonthlyRevenue(ctx, time.Now(), models.RevenueStatuses)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("CreateSyncTask", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO sync_queue").WillReturnError(boom)
		err := db.CreateSyncTask(ctx, &models.SyncTask{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestDB_ClosedConnection(t *testing.T) {
	db := setupTestDB(t)
	db.Close()
	ctx := context.Background()

	_, err := db.ListBookings(ctx)
	assert.Error(t, err)
	_, err = db.CountBookingsByStatus(ctx)
	assert.Error(t, err)
	assert.Error(t, db.CreateUser(ctx, &models.User{Email: "x@example.com"}))
}
