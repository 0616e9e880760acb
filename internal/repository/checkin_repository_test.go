package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brlvenue/table-reservation/internal/booking"
	"github.com/brlvenue/table-reservation/internal/model"
	"github.com/brlvenue/table-reservation/internal/repository"
)

func TestCheckInConsume(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	t.Run("consumes code and marks arrival in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE check_in_codes SET used_at").
			WithArgs(now, "K7MXQ2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT booking_id FROM check_in_codes").
			WithArgs("K7MXQ2").
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}).AddRow(42))
		mock.ExpectExec("UPDATE bookings SET status").
			WithArgs(model.StatusArrived, uint64(42), model.StatusConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := repository.NewCheckInRepo(db)
		bookingID, err := repo.Consume(ctx, "K7MXQ2", now)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), bookingID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled booking rejects the code without burning it", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE check_in_codes SET used_at").
			WithArgs(now, "K7MXQ2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT booking_id FROM check_in_codes").
			WithArgs("K7MXQ2").
			WillReturnRows(sqlmock.NewRows([]string{"booking_id"}).AddRow(42))
		// Booking is CANCELLED, so the conditional CONFIRMED->ARRIVED
		// update touches no rows and the whole transaction rolls back,
		// leaving used_at NULL.
		mock.ExpectExec("UPDATE bookings SET status").
			WithArgs(model.StatusArrived, uint64(42), model.StatusConfirmed).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		repo := repository.NewCheckInRepo(db)
		_, err = repo.Consume(ctx, "K7MXQ2", now)
		assert.ErrorIs(t, err, booking.ErrNotConfirmable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already used code is a conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE check_in_codes SET used_at").
			WithArgs(now, "K7MXQ2").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("K7MXQ2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		repo := repository.NewCheckInRepo(db)
		_, err = repo.Consume(ctx, "K7MXQ2", now)
		assert.ErrorIs(t, err, booking.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE check_in_codes SET used_at").
			WithArgs(now, "ZZZZZZ").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("ZZZZZZ").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		repo := repository.NewCheckInRepo(db)
		_, err = repo.Consume(ctx, "ZZZZZZ", now)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
