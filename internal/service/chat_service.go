package service

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/realtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventConversationUpdated = "conversation.updated"
	EventMessageCreated      = "message.created"
	EventMessagesRead        = "messages.read"
)

const (
	maxMessageLength = 4000
	sendLockShards   = 64
)

type ChatService struct {
	conversationRepo ConversationRepository
	messageRepo      MessageRepository
	matchingRepo     MatchingRepository
	profileRepo      ProfileRepository
	broker           *realtime.Broker
	notifier         Notifier
	logger           *zap.Logger
	now              func() time.Time

	// Отправка в один диалог идёт последовательно, чтобы время сообщений строго росло
	sendLocks [sendLockShards]sync.Mutex
}

func NewChatService(
	conversationRepo ConversationRepository,
	messageRepo MessageRepository,
	matchingRepo MatchingRepository,
	profileRepo ProfileRepository,
	broker *realtime.Broker,
	notifier Notifier,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		matchingRepo:     matchingRepo,
		profileRepo:      profileRepo,
		broker:           broker,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

// StartConversation находит или создаёт диалог двух пользователей.
// Переписка доступна, пока последняя заявка пары открыта, продолжена или подтверждена.
func (s *ChatService) StartConversation(ctx context.Context, userID, otherID string) (*model.Conversation, error) {
	if userID == otherID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	}

	user, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if user == nil {
		return nil, ErrProfileNotFound
	}

	other, err := s.profileRepo.GetByID(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("get counterpart profile: %w", err)
	}
	if other == nil {
		return nil, fmt.Errorf("user %s: %w", otherID, ErrNotFound)
	}

	if err := s.ensureChatAllowed(ctx, userID, otherID); err != nil {
		return nil, err
	}

	now := s.now().Truncate(time.Millisecond)
	conv, err := s.conversationRepo.GetOrCreate(ctx, &model.Conversation{
		ID:           uuid.NewString(),
		PairKey:      model.PairKey(userID, otherID),
		Participants: []string{userID, otherID},
		ParticipantNames: map[string]string{
			userID:  user.DisplayName,
			otherID: other.DisplayName,
		},
		ParticipantPhotos: map[string]string{
			userID:  user.PhotoURL,
			otherID: other.PhotoURL,
		},
		LastMessageAt: now,
		UnreadCount: map[string]int{
			userID:  0,
			otherID: 0,
		},
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}

	s.logger.Debug("Conversation opened",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)

	s.publishConversation(conv)
	return conv, nil
}

// SendMessage добавляет ровно одно сообщение. Его время строго позже
// lastMessageAt диалога (точность - миллисекунды), у получателя растёт счётчик непрочитанных.
func (s *ChatService) SendMessage(ctx context.Context, conversationID string, sender *model.Profile, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", ErrValidation)
	}
	if len([]rune(text)) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is too long", ErrValidation)
	}

	mu := s.sendLock(conversationID)
	mu.Lock()
	defer mu.Unlock()

	conv, err := s.getForParticipant(ctx, conversationID, sender.ID)
	if err != nil {
		return nil, err
	}

	recipients := conv.Recipients(sender.ID)
	for _, r := range recipients {
		if err := s.ensureChatAllowed(ctx, sender.ID, r); err != nil {
			return nil, err
		}
	}

	createdAt := s.now().Truncate(time.Millisecond)
	if !createdAt.After(conv.LastMessageAt) {
		createdAt = conv.LastMessageAt.Add(time.Millisecond)
	}

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName,
		SenderPhoto:    sender.PhotoURL,
		Text:           text,
		CreatedAt:      createdAt,
		ReadBy:         []string{sender.ID},
	}

	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := s.conversationRepo.ApplyMessage(ctx, conv.ID, text, createdAt, recipients); err != nil {
		// Без обновлённого диалога сообщение не считается отправленным
		if delErr := s.messageRepo.Delete(context.WithoutCancel(ctx), msg.ID); delErr != nil {
			s.logger.Error("Failed to remove message after conversation update error",
				zap.String("conversation_id", conv.ID),
				zap.String("message_id", msg.ID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	s.broker.Publish(realtime.MessagesTopic(conv.ID), realtime.Event{Type: EventMessageCreated, Data: msg})
	s.publishConversation(conv)

	for _, r := range recipients {
		notify(ctx, s.notifier, s.logger, r, fmt.Sprintf("💬 %s: %s", sender.DisplayName, preview(text)))
	}

	return msg, nil
}

// MarkAsRead обнуляет счётчик непрочитанных пользователя и отмечает сообщения прочитанными.
// Счётчики других участников не меняются.
func (s *ChatService) MarkAsRead(ctx context.Context, conversationID, userID string) error {
	conv, err := s.getForParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}

	if err := s.conversationRepo.ResetUnread(ctx, conv.ID, userID); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}

	marked, err := s.messageRepo.MarkRead(ctx, conv.ID, userID)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	if marked > 0 {
		s.broker.Publish(realtime.MessagesTopic(conv.ID), realtime.Event{Type: EventMessagesRead, Data: userID})
	}
	s.broker.Publish(realtime.ConversationsTopic(userID), realtime.Event{Type: EventConversationUpdated, Data: conv.ID})

	return nil
}

// ListConversations диалоги пользователя, свежие первыми
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error) {
	conversations, err := s.conversationRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// ListMessages сообщения диалога по возрастанию времени
func (s *ChatService) ListMessages(ctx context.Context, conversationID, userID string) ([]*model.Message, error) {
	if _, err := s.getForParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// SubscribeToConversations живой список диалогов пользователя
func (s *ChatService) SubscribeToConversations(ctx context.Context, userID string, onSnapshot func([]*model.Conversation), onError func(error)) *realtime.Subscription {
	return realtime.Watch(ctx, s.broker, realtime.ConversationsTopic(userID),
		func(ctx context.Context) ([]*model.Conversation, error) {
			return s.ListConversations(ctx, userID)
		},
		onSnapshot, onError,
	)
}

// SubscribeToMessages живой список сообщений диалога; только для участников
func (s *ChatService) SubscribeToMessages(ctx context.Context, conversationID, userID string, onSnapshot func([]*model.Message), onError func(error)) (*realtime.Subscription, error) {
	if _, err := s.getForParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return realtime.Watch(ctx, s.broker, realtime.MessagesTopic(conversationID),
		func(ctx context.Context) ([]*model.Message, error) {
			messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
			if err != nil {
				return nil, fmt.Errorf("list messages: %w", err)
			}
			return messages, nil
		},
		onSnapshot, onError,
	), nil
}

func (s *ChatService) ensureChatAllowed(ctx context.Context, userID, otherID string) error {
	m, err := s.matchingRepo.GetLatestByPair(ctx, userID, otherID)
	if err != nil {
		return fmt.Errorf("get matching: %w", err)
	}
	if m == nil || !m.AllowsChat() {
		return ErrChatNotAllowed
	}
	return nil
}

func (s *ChatService) getForParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if conv == nil || !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	return conv, nil
}

func (s *ChatService) sendLock(conversationID string) *sync.Mutex {
	h := sha1.Sum([]byte(conversationID))
	return &s.sendLocks[binary.BigEndian.Uint32(h[:4])%sendLockShards]
}

func (s *ChatService) publishConversation(conv *model.Conversation) {
	ev := realtime.Event{Type: EventConversationUpdated, Data: conv.ID}
	for _, p := range conv.Participants {
		s.broker.Publish(realtime.ConversationsTopic(p), ev)
	}
}

// preview обрезает текст для уведомления
func preview(text string) string {
	const limit = 100
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "…"
}
