package service

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Notifier доставляет пользователю короткое уведомление вне приложения
type Notifier interface {
	Notify(ctx context.Context, userID, text string) error
}

// NopNotifier только пишет в лог; используется, когда бот не настроен
type NopNotifier struct {
	logger *zap.Logger
}

func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

func (n *NopNotifier) Notify(_ context.Context, userID, text string) error {
	n.logger.Debug("Notification skipped", zap.String("user_id", userID), zap.String("text", text))
	return nil
}

// TelegramNotifier шлёт уведомления в Telegram тем, кто указал chat id в профиле
type TelegramNotifier struct {
	bot      *bot.Bot
	profiles ProfileRepository
	logger   *zap.Logger
}

func NewTelegramNotifier(botInstance *bot.Bot, profiles ProfileRepository, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:      botInstance,
		profiles: profiles,
		logger:   logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, userID, text string) error {
	profile, err := n.profiles.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	// Пользователь не подключил Telegram
	if profile == nil || profile.TelegramChatID == nil {
		return nil
	}

	_, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *profile.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// notify best-effort: ошибка доставки не должна ломать операцию
func notify(ctx context.Context, n Notifier, logger *zap.Logger, userID, text string) {
	if err := n.Notify(ctx, userID, text); err != nil {
		logger.Warn("Failed to deliver notification",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
