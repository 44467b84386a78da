package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"greencharge/backend/services/reservations-service/internal/models"
)

func newMockQueries(t *testing.T) (*pgQueries, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return &pgQueries{db: mock}, mock
}

func stmt(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func TestPostgresReserveSlot(t *testing.T) {
	id := uuid.New()
	reserve := stmt("WHERE id = $1 AND deleted_at IS NULL AND available_slots > 0")
	exists := stmt("SELECT EXISTS (SELECT 1 FROM chargers WHERE id = $1 AND deleted_at IS NULL)")

	t.Run("reserved", func(t *testing.T) {
		q, mock := newMockQueries(t)
		mock.ExpectExec(reserve).WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		ok, err := q.ReserveSlot(context.Background(), id)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("no free slot", func(t *testing.T) {
		q, mock := newMockQueries(t)
		mock.ExpectExec(reserve).WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(exists).WithArgs(id).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := q.ReserveSlot(context.Background(), id)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("missing or retired", func(t *testing.T) {
		q, mock := newMockQueries(t)
		mock.ExpectExec(reserve).WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(exists).WithArgs(id).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := q.ReserveSlot(context.Background(), id)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresReleaseSlotClamps(t *testing.T) {
	q, mock := newMockQueries(t)
	id := uuid.New()
	mock.ExpectExec(stmt("SET available_slots = LEAST(total_slots, available_slots + 1)")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, q.ReleaseSlot(context.Background(), id), ErrNotFound)
}

func TestPostgresScoreBounds(t *testing.T) {
	q, mock := newMockQueries(t)
	id := uuid.New()
	mock.ExpectExec(stmt("green_score = LEAST($5, green_score + $4)")).
		WithArgs(id, 1.0, 1.2, 10, models.MaxGreenScore).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(stmt("SET green_score = GREATEST($3, green_score - $2)")).
		WithArgs(id, 10, models.MinGreenScore).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, q.AwardSession(context.Background(), id, 1.0, 1.2, 10))
	require.ErrorIs(t, q.RevokePoints(context.Background(), id, 10), ErrNotFound)
}

func TestPostgresRetireResource(t *testing.T) {
	q, mock := newMockQueries(t)
	id := uuid.New()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	retire := stmt("UPDATE chargers SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL")
	mock.ExpectExec(retire).WithArgs(id, at).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(retire).WithArgs(id, at).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, q.RetireResource(context.Background(), id, at))
	require.ErrorIs(t, q.RetireResource(context.Background(), id, at), ErrNotFound)
}

func TestPostgresLockResourceMapsMissingRow(t *testing.T) {
	q, mock := newMockQueries(t)
	id := uuid.New()
	mock.ExpectQuery(stmt("FROM chargers WHERE id = $1 FOR UPDATE")).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := q.LockResource(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresCountPendingRequests(t *testing.T) {
	q, mock := newMockQueries(t)
	id := uuid.New()
	mock.ExpectQuery(stmt("SELECT COUNT(*) FROM booking_requests WHERE charger_id = $1 AND status = $2")).
		WithArgs(id, models.RequestPending).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := q.CountPendingRequests(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestPostgresStorageErrorsPassThrough(t *testing.T) {
	q, mock := newMockQueries(t)
	id := uuid.New()
	boom := errors.New("write tcp: connection reset by peer")
	mock.ExpectExec(stmt("available_slots > 0")).WithArgs(id).WillReturnError(boom)

	_, err := q.ReserveSlot(context.Background(), id)
	require.ErrorIs(t, err, boom)
}
