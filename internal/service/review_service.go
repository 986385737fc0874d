package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommentLength = 1000

type ReviewService struct {
	reviewRepo  ReviewRepository
	bookingRepo BookingRepository
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewReviewService(
	reviewRepo ReviewRepository,
	bookingRepo BookingRepository,
	notifier Notifier,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		bookingRepo: bookingRepo,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// Create ученик оставляет отзыв о завершённом занятии; один отзыв на бронь
func (s *ReviewService) Create(ctx context.Context, studentID, bookingID string, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment is too long", ErrValidation)
	}

	if err := checkID("booking", bookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.StudentID != studentID {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	if booking.Status != model.BookingStatusCompleted {
		return nil, fmt.Errorf("%w: only completed lessons can be reviewed", ErrValidation)
	}

	exists, err := s.reviewRepo.ExistsForBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("check review: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: lesson is already reviewed", ErrAlreadyExists)
	}

	review := &model.Review{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		TutorID:   booking.TutorID,
		StudentID: studentID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: lesson is already reviewed", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.Info("Review created",
		zap.String("review_id", review.ID),
		zap.String("booking_id", bookingID),
		zap.Int("rating", rating),
	)

	notify(ctx, s.notifier, s.logger, booking.TutorID,
		fmt.Sprintf("⭐ %s rated your lesson %d/5", booking.StudentName, rating))

	return review, nil
}

// ListForTutor отзывы о репетиторе, новые первыми
func (s *ReviewService) ListForTutor(ctx context.Context, tutorID string) ([]*model.Review, error) {
	reviews, err := s.reviewRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// Summary средняя оценка и число отзывов
func (s *ReviewService) Summary(ctx context.Context, tutorID string) (*model.RatingSummary, error) {
	summary, err := s.reviewRepo.SummaryByTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return summary, nil
}
