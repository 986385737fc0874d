package mongodb

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MessageRepository struct {
	repo   *Repository[model.Message]
	logger *zap.Logger
}

func NewMessageRepository(db *mongo.Database, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		repo:   NewRepository[model.Message](db, messagesCollection),
		logger: logger,
	}
}

// EnsureIndexes индекс для выборки сообщений диалога по времени
func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	err := r.repo.EnsureIndexes(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("ensure message indexes: %w", err)
	}
	return nil
}

// Insert сохраняет сообщение
func (r *MessageRepository) Insert(ctx context.Context, msg *model.Message) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, msg); err != nil {
		r.logger.Error("failed to insert message",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err),
		)
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// Delete удаляет сообщение, если диалог обновить не удалось
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.repo.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	return nil
}

// ListByConversation сообщения диалога в порядке отправки
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	msgs, err := r.repo.FindAll(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return msgs, nil
}

// MarkRead добавляет пользователя в read_by всех сообщений диалога
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	res, err := r.repo.ApplyMany(ctx,
		bson.M{"conversation_id": conversationID, "read_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	return res.ModifiedCount, nil
}
