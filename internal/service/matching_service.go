package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/formatting"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/realtime"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventMatchingUpdated  = "matching.updated"
	EventMatchingFollowup = "matching.followup"
)

type MatchingService struct {
	matchingRepo  MatchingRepository
	profileRepo   ProfileRepository
	broker        *realtime.Broker
	notifier      Notifier
	followupDelay time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewMatchingService(
	matchingRepo MatchingRepository,
	profileRepo ProfileRepository,
	broker *realtime.Broker,
	notifier Notifier,
	followupDelay time.Duration,
	logger *zap.Logger,
) *MatchingService {
	return &MatchingService{
		matchingRepo:  matchingRepo,
		profileRepo:   profileRepo,
		broker:        broker,
		notifier:      notifier,
		followupDelay: followupDelay,
		logger:        logger,
		now:           time.Now,
	}
}

// RequestContact ученик обращается к репетитору: заявка создаётся в статусе requested
func (s *MatchingService) RequestContact(ctx context.Context, learnerID, tutorID string) (*model.Matching, error) {
	if learnerID == tutorID {
		return nil, fmt.Errorf("%w: cannot contact yourself", ErrValidation)
	}

	learner, err := s.profileRepo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get learner: %w", err)
	}
	if learner == nil {
		return nil, ErrProfileNotFound
	}
	if learner.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students can request a contact", ErrForbidden)
	}

	tutor, err := s.profileRepo.GetByID(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil || !tutor.IsTutor() {
		return nil, fmt.Errorf("tutor %s: %w", tutorID, ErrNotFound)
	}

	// Не больше одной незавершённой заявки на пару
	existing, err := s.matchingRepo.GetActiveByPair(ctx, learnerID, tutorID)
	if err != nil {
		return nil, fmt.Errorf("check active matching: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: contact request is already %s", ErrAlreadyExists, existing.Status)
	}

	now := s.now()
	m := &model.Matching{
		ID:          uuid.NewString(),
		LearnerID:   learnerID,
		TutorID:     tutorID,
		LearnerName: learner.DisplayName,
		TutorName:   tutor.DisplayName,
		Status:      model.MatchingStatusRequested,
		ContactDate: now,
		UpdatedAt:   now,
	}

	if err := s.matchingRepo.Create(ctx, m); err != nil {
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: contact request already exists", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create matching: %w", err)
	}

	s.logger.Info("Contact requested",
		zap.String("matching_id", m.ID),
		zap.String("learner_id", learnerID),
		zap.String("tutor_id", tutorID),
	)

	s.publish(m)
	notify(ctx, s.notifier, s.logger, tutorID,
		fmt.Sprintf("📩 %s would like to take lessons with you. Open the app to accept or refuse.", learner.DisplayName))

	return m, nil
}

// Accept репетитор принимает заявку: requested -> open
func (s *MatchingService) Accept(ctx context.Context, matchingID, actorID string) (*model.Matching, error) {
	m, err := s.getForParticipant(ctx, matchingID, actorID)
	if err != nil {
		return nil, err
	}

	if m.TutorID != actorID {
		return nil, fmt.Errorf("%w: only the tutor can accept a contact request", ErrForbidden)
	}

	if err := s.transition(ctx, m, model.MatchingStatusOpen); err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, s.logger, m.LearnerID,
		fmt.Sprintf("✅ %s accepted your contact request. You can chat now.", m.TutorName))

	return m, nil
}

// Refuse любая сторона отказывается от незавершённой заявки
func (s *MatchingService) Refuse(ctx context.Context, matchingID, actorID string) (*model.Matching, error) {
	m, err := s.getForParticipant(ctx, matchingID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, m, model.MatchingStatusRefused); err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, s.logger, m.CounterpartOf(actorID),
		fmt.Sprintf("🚫 The contact between %s and %s was closed.", m.LearnerName, m.TutorName))

	return m, nil
}

// Close завершает открытую заявку итогом: confirmed, refused или continued
func (s *MatchingService) Close(ctx context.Context, matchingID, actorID string, status model.MatchingStatus, feedback string) (*model.Matching, error) {
	switch status {
	case model.MatchingStatusConfirmed, model.MatchingStatusRefused, model.MatchingStatusContinued:
	default:
		return nil, fmt.Errorf("%w: cannot close a contact as %q", ErrValidation, status)
	}

	m, err := s.getForParticipant(ctx, matchingID, actorID)
	if err != nil {
		return nil, err
	}

	// Закрыть можно только после того, как репетитор принял заявку
	if m.Status != model.MatchingStatusOpen && m.Status != model.MatchingStatusContinued {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, status)
	}

	if fb := strings.TrimSpace(feedback); fb != "" {
		m.Feedback = fb
	}

	if err := s.transition(ctx, m, status); err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, s.logger, m.CounterpartOf(actorID), fmt.Sprintf(
		"Contact between %s and %s: %s",
		m.LearnerName, m.TutorName, formatting.GetMatchingStatusDisplay(status).String(),
	))

	return m, nil
}

// Get получает заявку, если пользователь - одна из сторон
func (s *MatchingService) Get(ctx context.Context, matchingID, actorID string) (*model.Matching, error) {
	return s.getForParticipant(ctx, matchingID, actorID)
}

// ListForUser все заявки пользователя, новые первыми
func (s *MatchingService) ListForUser(ctx context.Context, userID string) ([]*model.Matching, error) {
	matchings, err := s.matchingRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matchings: %w", err)
	}
	return matchings, nil
}

// PendingFollowups заявки ученика, простаивающие дольше порога
func (s *MatchingService) PendingFollowups(ctx context.Context, learnerID string) ([]*model.Matching, error) {
	matchings, err := s.matchingRepo.ListDueFollowupsByLearner(ctx, learnerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list pending followups: %w", err)
	}
	return matchings, nil
}

// SweepFollowups напоминает ученикам о простаивающих заявках и откладывает
// следующее напоминание. Пропущенные напоминания не сохраняются.
func (s *MatchingService) SweepFollowups(ctx context.Context) (int, error) {
	now := s.now()

	due, err := s.matchingRepo.ListDueFollowups(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due followups: %w", err)
	}

	prompted := 0
	for _, m := range due {
		if !m.FollowupDue(now) {
			continue
		}

		next := now.Add(s.followupDelay)
		if err := s.matchingRepo.SnoozeFollowup(ctx, m.ID, next); err != nil {
			if errors.Is(err, base.ErrNoRowsAffected) {
				// Статус успел измениться - напоминать уже не о чем
				continue
			}
			return prompted, fmt.Errorf("snooze followup %s: %w", m.ID, err)
		}

		prompt := *m
		s.broker.Publish(realtime.FollowupsTopic(m.LearnerID), realtime.Event{Type: EventMatchingFollowup, Data: &prompt})

		m.FollowupAt = &next
		s.publish(m)

		notify(ctx, s.notifier, s.logger, m.LearnerID,
			fmt.Sprintf("⏰ How is it going with %s? Let us know whether you found your tutor or keep searching.", m.TutorName))

		prompted++
	}

	if prompted > 0 {
		s.logger.Info("Follow-ups sent", zap.Int("count", prompted))
	}

	return prompted, nil
}

// Subscribe живой список заявок пользователя
func (s *MatchingService) Subscribe(ctx context.Context, userID string, onSnapshot func([]*model.Matching), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.broker, realtime.MatchingsTopic(userID),
		func(ctx context.Context) ([]*model.Matching, error) {
			return s.ListForUser(ctx, userID)
		},
		onSnapshot, onError,
	)
}

// SubscribeFollowups напоминания ученику в реальном времени
func (s *MatchingService) SubscribeFollowups(ctx context.Context, learnerID string, onPrompt func(*model.Matching)) *realtime.Subscription {
	return s.broker.Subscribe(ctx, realtime.FollowupsTopic(learnerID), func(batch []realtime.Event) {
		for _, ev := range batch {
			if m, ok := ev.Data.(*model.Matching); ok {
				onPrompt(m)
			}
		}
	})
}

func (s *MatchingService) getForParticipant(ctx context.Context, matchingID, actorID string) (*model.Matching, error) {
	if err := checkID("matching", matchingID); err != nil {
		return nil, err
	}

	m, err := s.matchingRepo.GetByID(ctx, matchingID)
	if err != nil {
		return nil, fmt.Errorf("get matching: %w", err)
	}

	// Чужие заявки для пользователя не существуют
	if m == nil || !m.IsParticipant(actorID) {
		return nil, fmt.Errorf("matching %s: %w", matchingID, ErrNotFound)
	}

	return m, nil
}

func (s *MatchingService) transition(ctx context.Context, m *model.Matching, to model.MatchingStatus) error {
	prev := m.Status

	if err := m.Transition(to, s.now(), s.followupDelay); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	if err := s.matchingRepo.UpdateState(ctx, m, prev); err != nil {
		if errors.Is(err, base.ErrNoRowsAffected) {
			return fmt.Errorf("matching %s: %w", m.ID, ErrConflict)
		}
		return fmt.Errorf("update matching: %w", err)
	}

	s.logger.Info("Matching status changed",
		zap.String("matching_id", m.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(to)),
	)

	s.publish(m)
	return nil
}

func (s *MatchingService) publish(m *model.Matching) {
	snapshot := *m
	ev := realtime.Event{Type: EventMatchingUpdated, Data: &snapshot}
	s.broker.Publish(realtime.MatchingsTopic(m.LearnerID), ev)
	s.broker.Publish(realtime.MatchingsTopic(m.TutorID), ev)
}
