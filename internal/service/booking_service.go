package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/formatting"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/realtime"
	"github.com/Freeeeeet/tutor_market/internal/render"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const EventBookingUpdated = "booking.updated"

const maxNotesLength = 1000

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type BookingService struct {
	bookingRepo BookingRepository
	profileRepo ProfileRepository
	broker      *realtime.Broker
	notifier    Notifier
	location    *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

func NewBookingService(
	bookingRepo BookingRepository,
	profileRepo ProfileRepository,
	broker *realtime.Broker,
	notifier Notifier,
	location *time.Location,
	logger *zap.Logger,
) *BookingService {
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		bookingRepo: bookingRepo,
		profileRepo: profileRepo,
		broker:      broker,
		notifier:    notifier,
		location:    location,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBookingInput запрос ученика на занятие. Дата и время - в часовом поясе сервиса.
type CreateBookingInput struct {
	TutorID   string
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Price     int64
	Currency  string
	Notes     string
}

// Create ученик бронирует занятие; бронь ждёт подтверждения репетитора
func (s *BookingService) Create(ctx context.Context, studentID string, in CreateBookingInput) (*model.Booking, error) {
	startsAt, endsAt, err := s.parseInterval(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !startsAt.After(now) {
		return nil, fmt.Errorf("%w: lesson must start in the future", ErrValidation)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if !currencyPattern.MatchString(currency) {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	notes := strings.TrimSpace(in.Notes)
	if len([]rune(notes)) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes are too long", ErrValidation)
	}

	student, err := s.profileRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, ErrProfileNotFound
	}
	if student.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students can book lessons", ErrForbidden)
	}

	tutor, err := s.profileRepo.GetByID(ctx, in.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil || !tutor.IsTutor() {
		return nil, fmt.Errorf("tutor %s: %w", in.TutorID, ErrNotFound)
	}

	booking := &model.Booking{
		ID:          uuid.NewString(),
		TutorID:     tutor.ID,
		StudentID:   studentID,
		TutorName:   tutor.DisplayName,
		StudentName: student.DisplayName,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Status:      model.BookingStatusPending,
		Price:       in.Price,
		Currency:    currency,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("Lesson booked",
		zap.String("booking_id", booking.ID),
		zap.String("student_id", studentID),
		zap.String("tutor_id", tutor.ID),
		zap.Time("starts_at", startsAt),
	)

	s.publish(booking)
	notify(ctx, s.notifier, s.logger, tutor.ID, fmt.Sprintf(
		"📚 New booking request from %s\n📅 %s (%s)\n💰 %s",
		student.DisplayName,
		formatting.FormatLesson(startsAt, endsAt, s.location),
		formatting.FormatDuration(int(endsAt.Sub(startsAt).Minutes())),
		formatting.FormatPriceShort(booking.Price, booking.Currency),
	))

	return booking, nil
}

// UpdateStatus общий переход статуса с проверкой ролей:
// подтверждает только репетитор, отменяет любая сторона,
// завершить можно только после окончания занятия.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID, actorID string, to model.BookingStatus) (*model.Booking, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", ErrValidation, to)
	}

	booking, err := s.getForParticipant(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	switch to {
	case model.BookingStatusConfirmed:
		if booking.TutorID != actorID {
			return nil, fmt.Errorf("%w: only the tutor can confirm a booking", ErrForbidden)
		}
	case model.BookingStatusCompleted:
		if booking.Status == model.BookingStatusConfirmed && now.Before(booking.EndsAt) {
			return nil, fmt.Errorf("%w: lesson has not ended yet", ErrValidation)
		}
	}

	if !booking.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, to)
	}

	if to == model.BookingStatusConfirmed {
		if err := s.checkOverlap(ctx, booking); err != nil {
			return nil, err
		}
	}

	if err := s.transition(ctx, booking, to, now); err != nil {
		return nil, err
	}

	s.notifyChange(ctx, booking, actorID)

	return booking, nil
}

// Accept репетитор подтверждает бронь
func (s *BookingService) Accept(ctx context.Context, bookingID, tutorID string) (*model.Booking, error) {
	return s.UpdateStatus(ctx, bookingID, tutorID, model.BookingStatusConfirmed)
}

// Decline репетитор отклоняет ожидающую бронь
func (s *BookingService) Decline(ctx context.Context, bookingID, tutorID string) (*model.Booking, error) {
	booking, err := s.getForParticipant(ctx, bookingID, tutorID)
	if err != nil {
		return nil, err
	}

	if booking.TutorID != tutorID {
		return nil, fmt.Errorf("%w: only the tutor can decline a booking", ErrForbidden)
	}
	if booking.Status != model.BookingStatusPending {
		return nil, fmt.Errorf("%w: only pending bookings can be declined", ErrInvalidTransition)
	}

	return s.UpdateStatus(ctx, bookingID, tutorID, model.BookingStatusCancelled)
}

// Cancel любая сторона отменяет бронь
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	return s.UpdateStatus(ctx, bookingID, actorID, model.BookingStatusCancelled)
}

// Complete отмечает прошедшее занятие завершённым
func (s *BookingService) Complete(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	return s.UpdateStatus(ctx, bookingID, actorID, model.BookingStatusCompleted)
}

// CompleteElapsed переводит закончившиеся подтверждённые занятия в completed
func (s *BookingService) CompleteElapsed(ctx context.Context) (int, error) {
	now := s.now()

	elapsed, err := s.bookingRepo.ListElapsedConfirmed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list elapsed bookings: %w", err)
	}

	completed := 0
	for _, booking := range elapsed {
		if err := s.transition(ctx, booking, model.BookingStatusCompleted, now); err != nil {
			if errors.Is(err, ErrConflict) {
				// Бронь успели отменить
				continue
			}
			return completed, err
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info("Elapsed lessons completed", zap.Int("count", completed))
	}

	return completed, nil
}

// Get бронь, если пользователь - одна из сторон
func (s *BookingService) Get(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	return s.getForParticipant(ctx, bookingID, actorID)
}

// ListForUser брони пользователя по времени начала
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	bookings, err := s.bookingRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Subscribe живой список броней пользователя
func (s *BookingService) Subscribe(ctx context.Context, userID string, onSnapshot func([]*model.Booking), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.broker, realtime.BookingsTopic(userID),
		func(ctx context.Context) ([]*model.Booking, error) {
			return s.ListForUser(ctx, userID)
		},
		onSnapshot, onError,
	)
}

// WeekImage PNG-календарь занятий репетитора на неделю, содержащую weekStart
func (s *BookingService) WeekImage(ctx context.Context, tutorID string, weekStart time.Time) ([]byte, error) {
	week := render.WeekBounds(weekStart.In(s.location))

	bookings, err := s.bookingRepo.ListByTutorBetween(ctx, tutorID, week.Start(), week.End())
	if err != nil {
		return nil, fmt.Errorf("list week bookings: %w", err)
	}

	image, err := render.GenerateWeekImage(week.Start(), bookings, render.WeekOptions{
		Location: s.location,
		Now:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate week image: %w", err)
	}

	return image, nil
}

// parseInterval собирает начало и конец занятия из даты и времени в часовом поясе сервиса
func (s *BookingService) parseInterval(date, startTime, endTime string) (time.Time, time.Time, error) {
	const layout = "2006-01-02 15:04"

	startsAt, err := time.ParseInLocation(layout, date+" "+startTime, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date or start time", ErrValidation)
	}
	endsAt, err := time.ParseInLocation(layout, date+" "+endTime, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end time", ErrValidation)
	}
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: lesson must end after it starts", ErrValidation)
	}

	return startsAt, endsAt, nil
}

// checkOverlap не даёт подтвердить занятие поверх другого подтверждённого
func (s *BookingService) checkOverlap(ctx context.Context, booking *model.Booking) error {
	others, err := s.bookingRepo.ListByTutorBetween(ctx, booking.TutorID, booking.StartsAt, booking.EndsAt)
	if err != nil {
		return fmt.Errorf("list tutor bookings: %w", err)
	}

	for _, other := range others {
		if other.ID == booking.ID || other.Status != model.BookingStatusConfirmed {
			continue
		}
		if booking.Overlaps(other) {
			return fmt.Errorf("%w: %s", ErrBookingOverlap,
				formatting.FormatLesson(other.StartsAt, other.EndsAt, s.location))
		}
	}

	return nil
}

func (s *BookingService) getForParticipant(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	if err := checkID("booking", bookingID); err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if booking == nil || !booking.IsParticipant(actorID) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	return booking, nil
}

func (s *BookingService) transition(ctx context.Context, booking *model.Booking, to model.BookingStatus, now time.Time) error {
	prev := booking.Status

	if err := booking.Transition(to, now); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	if err := s.bookingRepo.UpdateStatus(ctx, booking, prev); err != nil {
		booking.Status = prev
		if base.IsExclusionViolation(err) {
			return fmt.Errorf("%w: %s", ErrBookingOverlap,
				formatting.FormatLesson(booking.StartsAt, booking.EndsAt, s.location))
		}
		if errors.Is(err, base.ErrNoRowsAffected) {
			return fmt.Errorf("booking %s: %w", booking.ID, ErrConflict)
		}
		return fmt.Errorf("update booking status: %w", err)
	}

	s.logger.Info("Booking status changed",
		zap.String("booking_id", booking.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(to)),
	)

	s.publish(booking)
	return nil
}

func (s *BookingService) notifyChange(ctx context.Context, booking *model.Booking, actorID string) {
	status := formatting.GetBookingStatusDisplay(booking.Status)
	notify(ctx, s.notifier, s.logger, booking.CounterpartOf(actorID), fmt.Sprintf(
		"%s Lesson %s with %s: %s",
		status.Emoji,
		formatting.FormatLesson(booking.StartsAt, booking.EndsAt, s.location),
		counterpartName(booking, actorID),
		status.Text,
	))
}

// counterpartName имя того, кто изменил бронь, для получателя уведомления
func counterpartName(booking *model.Booking, actorID string) string {
	if booking.TutorID == actorID {
		return booking.TutorName
	}
	return booking.StudentName
}

func (s *BookingService) publish(booking *model.Booking) {
	snapshot := *booking
	ev := realtime.Event{Type: EventBookingUpdated, Data: &snapshot}
	s.broker.Publish(realtime.BookingsTopic(booking.StudentID), ev)
	s.broker.Publish(realtime.BookingsTopic(booking.TutorID), ev)
}
