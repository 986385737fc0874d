package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
)

// Интерфейсы хранилищ, которые нужны сервисам.
// Реализации: internal/repository (Postgres) и internal/repository/mongodb.

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	Upsert(ctx context.Context, profile *model.Profile) error
	ListByRole(ctx context.Context, role model.Role) ([]*model.Profile, error)
}

type MatchingRepository interface {
	Create(ctx context.Context, m *model.Matching) error
	GetByID(ctx context.Context, id string) (*model.Matching, error)
	GetActiveByPair(ctx context.Context, learnerID, tutorID string) (*model.Matching, error)
	GetLatestByPair(ctx context.Context, userA, userB string) (*model.Matching, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Matching, error)
	ListDueFollowups(ctx context.Context, now time.Time) ([]*model.Matching, error)
	ListDueFollowupsByLearner(ctx context.Context, learnerID string, now time.Time) ([]*model.Matching, error)
	UpdateState(ctx context.Context, m *model.Matching, prev model.MatchingStatus) error
	SnoozeFollowup(ctx context.Context, id string, next time.Time) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Booking, error)
	ListByTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]*model.Booking, error)
	ListElapsedConfirmed(ctx context.Context, now time.Time) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, booking *model.Booking, prev model.BookingStatus) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
	ListByTutor(ctx context.Context, tutorID string) ([]*model.Review, error)
	SummaryByTutor(ctx context.Context, tutorID string) (*model.RatingSummary, error)
}

type ConversationRepository interface {
	GetOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error)
	ApplyMessage(ctx context.Context, conversationID, text string, at time.Time, recipients []string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
}

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) error
	Delete(ctx context.Context, id string) error
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
	MarkRead(ctx context.Context, conversationID, userID string) (int64, error)
}
