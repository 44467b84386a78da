package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"greencharge/backend/services/reservations-service/internal/models"
)

//go:embed schema.sql
var schemaSQL string

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists state in PostgreSQL. Slot and ledger changes are single conditional
// UPDATE statements, so concurrent transactions cannot overbook or push a score out of range.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgQueries{db: tx})
	})
}

func (s *PostgresStore) View(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	return fn(ctx, &pgQueries{db: s.pool})
}

type pgQueries struct {
	db querier
}

const resourceColumns = `id, owner_id, name, description, address, latitude, longitude, charger_type,
	price_per_hour, rating, total_slots, available_slots, created_at, updated_at, deleted_at`

func scanResource(row pgx.Row) (*models.Resource, error) {
	var r models.Resource
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Name,
		&r.Description,
		&r.Address,
		&r.Latitude,
		&r.Longitude,
		&r.ChargerType,
		&r.PricePerHour,
		&r.Rating,
		&r.TotalSlots,
		&r.AvailableSlots,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.DeletedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (q *pgQueries) GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	return scanResource(q.db.QueryRow(ctx, `SELECT `+resourceColumns+` FROM chargers WHERE id = $1`, id))
}

func (q *pgQueries) LockResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	return scanResource(q.db.QueryRow(ctx, `SELECT `+resourceColumns+` FROM chargers WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) ListResources(ctx context.Context, filter ResourceFilter) ([]models.Resource, error) {
	const query = `
		SELECT ` + resourceColumns + `
		FROM chargers
		WHERE deleted_at IS NULL AND ($1::uuid IS NULL OR owner_id = $1)
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := q.db.Query(ctx, query, filter.OwnerID, limitOrDefault(filter.Limit))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanResource)
}

func (q *pgQueries) InsertResource(ctx context.Context, r *models.Resource) error {
	const query = `
		INSERT INTO chargers (` + resourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := q.db.Exec(ctx, query,
		r.ID,
		r.OwnerID,
		r.Name,
		r.Description,
		r.Address,
		r.Latitude,
		r.Longitude,
		r.ChargerType,
		r.PricePerHour,
		r.Rating,
		r.TotalSlots,
		r.AvailableSlots,
		r.CreatedAt,
		r.UpdatedAt,
		r.DeletedAt,
	)
	return err
}

func (q *pgQueries) UpdateResourceDetails(ctx context.Context, r *models.Resource) error {
	const query = `
		UPDATE chargers
		SET name = $2,
		    description = $3,
		    address = $4,
		    charger_type = $5,
		    price_per_hour = $6,
		    updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`
	tag, err := q.db.Exec(ctx, query, r.ID, r.Name, r.Description, r.Address, r.ChargerType, r.PricePerHour, r.UpdatedAt)
	return affectedOne(tag, err)
}

func (q *pgQueries) RetireResource(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE chargers SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	return affectedOne(tag, err)
}

func (q *pgQueries) ReserveSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `
		UPDATE chargers
		SET available_slots = available_slots - 1,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND available_slots > 0
	`
	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chargers WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (q *pgQueries) ReleaseSlot(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE chargers
		SET available_slots = LEAST(total_slots, available_slots + 1),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query, id)
	return affectedOne(tag, err)
}

const accountColumns = `id, role, name, email, green_score, total_sessions, estimated_co2_saved, total_charging_time, created_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Role,
		&a.Name,
		&a.Email,
		&a.GreenScore,
		&a.TotalSessions,
		&a.EstimatedCO2Saved,
		&a.TotalChargingTime,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (q *pgQueries) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (q *pgQueries) UpsertAccount(ctx context.Context, a *models.Account) error {
	const query = `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email
		RETURNING ` + accountColumns
	stored, err := scanAccount(q.db.QueryRow(ctx, query,
		a.ID,
		a.Role,
		a.Name,
		a.Email,
		a.GreenScore,
		a.TotalSessions,
		a.EstimatedCO2Saved,
		a.TotalChargingTime,
		a.CreatedAt,
	))
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

func (q *pgQueries) AwardSession(ctx context.Context, id uuid.UUID, hours, co2Kg float64, points int) error {
	const query = `
		UPDATE accounts
		SET total_sessions = total_sessions + 1,
		    total_charging_time = total_charging_time + $2,
		    estimated_co2_saved = estimated_co2_saved + $3,
		    green_score = LEAST($5, green_score + $4)
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query, id, hours, co2Kg, points, models.MaxGreenScore)
	return affectedOne(tag, err)
}

func (q *pgQueries) RevokePoints(ctx context.Context, id uuid.UUID, points int) error {
	const query = `UPDATE accounts SET green_score = GREATEST($3, green_score - $2) WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, points, models.MinGreenScore)
	return affectedOne(tag, err)
}

const bookingColumns = `id, user_id, charger_id, request_id, start_time, end_time, duration_hours, status,
	green_points_earned, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ResourceID,
		&b.RequestID,
		&b.StartTime,
		&b.EndTime,
		&b.DurationHours,
		&b.Status,
		&b.GreenPointsEarned,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (q *pgQueries) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (q *pgQueries) LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return scanBooking(q.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) InsertBooking(ctx context.Context, b *models.Booking) error {
	const query = `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.db.Exec(ctx, query,
		b.ID,
		b.UserID,
		b.ResourceID,
		b.RequestID,
		b.StartTime,
		b.EndTime,
		b.DurationHours,
		b.Status,
		b.GreenPointsEarned,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return err
}

func (q *pgQueries) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus, at time.Time) error {
	tag, err := q.db.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	return affectedOne(tag, err)
}

func (q *pgQueries) ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error) {
	const query = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::uuid IS NULL OR charger_id = $2)
		  AND ($3::text = '' OR status = $3)
		ORDER BY start_time DESC
		LIMIT $4
	`
	rows, err := q.db.Query(ctx, query, filter.UserID, filter.ResourceID, string(filter.Status), limitOrDefault(filter.Limit))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBooking)
}

func (q *pgQueries) CountActiveBookings(ctx context.Context, resourceID uuid.UUID) (int, error) {
	var count int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE charger_id = $1 AND status = $2`,
		resourceID, models.BookingActive,
	).Scan(&count)
	return count, err
}

func (q *pgQueries) CountPendingRequests(ctx context.Context, resourceID uuid.UUID) (int, error) {
	var count int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM booking_requests WHERE charger_id = $1 AND status = $2`,
		resourceID, models.RequestPending,
	).Scan(&count)
	return count, err
}

const requestColumns = `id, user_id, charger_id, owner_id, start_time, duration_hours, status, booking_id,
	rejection_reason, created_at, approved_at, session_started_at, session_ended_at, cancelled_at, updated_at`

func scanBookingRequest(row pgx.Row) (*models.BookingRequest, error) {
	var r models.BookingRequest
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.ResourceID,
		&r.OwnerID,
		&r.StartTime,
		&r.DurationHours,
		&r.Status,
		&r.BookingID,
		&r.RejectionReason,
		&r.CreatedAt,
		&r.ApprovedAt,
		&r.SessionStartedAt,
		&r.SessionEndedAt,
		&r.CancelledAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (q *pgQueries) GetBookingRequest(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	return scanBookingRequest(q.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM booking_requests WHERE id = $1`, id))
}

func (q *pgQueries) LockBookingRequest(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	return scanBookingRequest(q.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM booking_requests WHERE id = $1 FOR UPDATE`, id))
}

func (q *pgQueries) InsertBookingRequest(ctx context.Context, r *models.BookingRequest) error {
	const query = `
		INSERT INTO booking_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := q.db.Exec(ctx, query,
		r.ID,
		r.UserID,
		r.ResourceID,
		r.OwnerID,
		r.StartTime,
		r.DurationHours,
		r.Status,
		r.BookingID,
		r.RejectionReason,
		r.CreatedAt,
		r.ApprovedAt,
		r.SessionStartedAt,
		r.SessionEndedAt,
		r.CancelledAt,
		r.UpdatedAt,
	)
	return err
}

func (q *pgQueries) UpdateBookingRequest(ctx context.Context, r *models.BookingRequest) error {
	const query = `
		UPDATE booking_requests
		SET status = $2,
		    booking_id = $3,
		    rejection_reason = $4,
		    approved_at = $5,
		    session_started_at = $6,
		    session_ended_at = $7,
		    cancelled_at = $8,
		    updated_at = $9
		WHERE id = $1
	`
	tag, err := q.db.Exec(ctx, query,
		r.ID,
		r.Status,
		r.BookingID,
		r.RejectionReason,
		r.ApprovedAt,
		r.SessionStartedAt,
		r.SessionEndedAt,
		r.CancelledAt,
		r.UpdatedAt,
	)
	return affectedOne(tag, err)
}

func (q *pgQueries) ListBookingRequests(ctx context.Context, filter RequestFilter) ([]models.BookingRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM booking_requests
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND ($3::text = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := q.db.Query(ctx, query, filter.UserID, filter.OwnerID, string(filter.Status), limitOrDefault(filter.Limit))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBookingRequest)
}

func (q *pgQueries) SlotUsage(ctx context.Context) ([]SlotUsage, error) {
	const query = `
		SELECT c.id, c.total_slots, c.available_slots, COUNT(b.id)
		FROM chargers c
		LEFT JOIN bookings b ON b.charger_id = c.id AND b.status = $1
		WHERE c.deleted_at IS NULL
		GROUP BY c.id, c.total_slots, c.available_slots
	`
	rows, err := q.db.Query(ctx, query, models.BookingActive)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*SlotUsage, error) {
		var u SlotUsage
		if err := row.Scan(&u.ResourceID, &u.TotalSlots, &u.AvailableSlots, &u.ActiveBookings); err != nil {
			return nil, err
		}
		return &u, nil
	})
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
