package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, tutor_id, student_id, tutor_name, student_name, starts_at, ends_at, status, price, currency, notes, created_at, updated_at`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (id, tutor_id, student_id, tutor_name, student_name, starts_at, ends_at, status, price, currency, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.Pool().Exec(
		ctx, query,
		booking.ID,
		booking.TutorID,
		booking.StudentID,
		booking.TutorName,
		booking.StudentName,
		booking.StartsAt,
		booking.EndsAt,
		booking.Status,
		booking.Price,
		booking.Currency,
		booking.Notes,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByUser получает все бронирования, где пользователь ученик или репетитор
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE student_id = $1 OR tutor_id = $1
		ORDER BY starts_at DESC
	`

	return r.list(ctx, "list bookings by user", query, userID)
}

// ListByTutorBetween получает бронирования репетитора в интервале [from, to)
func (r *BookingRepository) ListByTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at ASC
	`

	return r.list(ctx, "list bookings by tutor", query, tutorID, from, to)
}

// ListElapsedConfirmed получает подтверждённые занятия, которые уже закончились
func (r *BookingRepository) ListElapsedConfirmed(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed' AND ends_at <= $1
		ORDER BY ends_at ASC
	`

	return r.list(ctx, "list elapsed bookings", query, now)
}

// UpdateStatus обновляет статус, если в базе всё ещё prev
func (r *BookingRepository) UpdateStatus(ctx context.Context, booking *model.Booking, prev model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	if err := r.ExecOne(ctx, query, booking.Status, booking.UpdatedAt, booking.ID, prev); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	return nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]*model.Booking, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.TutorID,
		&b.StudentID,
		&b.TutorName,
		&b.StudentName,
		&b.StartsAt,
		&b.EndsAt,
		&b.Status,
		&b.Price,
		&b.Currency,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
