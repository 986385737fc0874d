package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository struct {
	*base.Repository
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет отзыв. Повторный отзыв на ту же бронь даёт нарушение уникальности.
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, tutor_id, student_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.Pool().Exec(
		ctx, query,
		review.ID,
		review.BookingID,
		review.TutorID,
		review.StudentID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}

	return nil
}

// ExistsForBooking проверяет, оставлен ли уже отзыв
func (r *ReviewRepository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE booking_id = $1)`

	var exists bool
	if err := r.QueryRow(ctx, query, bookingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}

	return exists, nil
}

// ListByTutor получает отзывы о репетиторе, новые первыми
func (r *ReviewRepository) ListByTutor(ctx context.Context, tutorID string) ([]*model.Review, error) {
	query := `
		SELECT id, booking_id, tutor_id, student_id, rating, comment, created_at
		FROM reviews
		WHERE tutor_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.Query(ctx, query, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by tutor: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		var review model.Review
		err := rows.Scan(
			&review.ID,
			&review.BookingID,
			&review.TutorID,
			&review.StudentID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, &review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

// SummaryByTutor средняя оценка и количество отзывов
func (r *ReviewRepository) SummaryByTutor(ctx context.Context, tutorID string) (*model.RatingSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM reviews
		WHERE tutor_id = $1
	`

	summary := &model.RatingSummary{TutorID: tutorID}
	if err := r.QueryRow(ctx, query, tutorID).Scan(&summary.Average, &summary.Count); err != nil {
		return nil, fmt.Errorf("summarize reviews: %w", err)
	}

	return summary, nil
}
