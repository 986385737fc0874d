package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type ConversationRepository struct {
	repo   *Repository[model.Conversation]
	logger *zap.Logger
}

func NewConversationRepository(db *mongo.Database, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		repo:   NewRepository[model.Conversation](db, conversationsCollection),
		logger: logger,
	}
}

// EnsureIndexes уникальность пары и сортировка списка диалогов
func (r *ConversationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	err := r.repo.EnsureIndexes(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_at", Value: -1}},
		},
	)
	if err != nil {
		return fmt.Errorf("ensure conversation indexes: %w", err)
	}
	return nil
}

// GetOrCreate атомарно находит диалог пары или вставляет conv
func (r *ConversationRepository) GetOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result model.Conversation
	err := r.repo.Collection().FindOneAndUpdate(ctx,
		bson.M{"pair_key": conv.PairKey},
		bson.M{"$setOnInsert": conv},
		opts,
	).Decode(&result)
	if err != nil {
		r.logger.Error("failed to upsert conversation",
			zap.String("pair_key", conv.PairKey),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}

	return &result, nil
}

// GetByID получает диалог; nil, nil если не найден
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conv, err := r.repo.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// ListByParticipant диалоги пользователя, последние по активности первыми
func (r *ConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	convs, err := r.repo.FindAll(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		r.logger.Error("failed to list conversations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return convs, nil
}

// ApplyMessage обновляет превью и увеличивает счётчики непрочитанного у получателей
func (r *ConversationRepository) ApplyMessage(ctx context.Context, conversationID, text string, at time.Time, recipients []string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	inc := bson.M{}
	for _, recipient := range recipients {
		inc["unread_count."+recipient] = 1
	}

	update := bson.M{
		"$set": bson.M{
			"last_message":    text,
			"last_message_at": at,
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	res, err := r.repo.Apply(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return fmt.Errorf("apply message to conversation: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("apply message to conversation: %w", mongo.ErrNoDocuments)
	}

	return nil
}

// ResetUnread обнуляет счётчик одного участника
func (r *ConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	_, err := r.repo.Apply(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread_count." + userID: 0}},
	)
	if err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}

	return nil
}
