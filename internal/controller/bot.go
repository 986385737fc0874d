package controller

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotController Telegram-бот для доставки уведомлений.
// Пользователь получает chat id через /start и сохраняет его в профиле.
type BotController struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewBotController(botInstance *bot.Bot, logger *zap.Logger) *BotController {
	return &BotController{
		bot:    botInstance,
		logger: logger,
	}
}

// RegisterHandlers регистрирует команды и меню
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.HandleHelp)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Connect notifications"},
		{Command: "help", Description: "❓ What this bot does"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start блокирует до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot")
	c.bot.Start(ctx)
}

// HandleStart отвечает chat id, который нужно указать в профиле
func (c *BotController) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	c.reply(ctx, b, update.Message.Chat.ID, StartText(update.Message.Chat.ID, update.Message.From))
}

// HandleHelp обрабатывает команду /help
func (c *BotController) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	c.reply(ctx, b, update.Message.Chat.ID, HelpText)
}

func (c *BotController) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// HelpText справка бота
const HelpText = "📚 This bot delivers Tutor Market notifications:\n\n" +
	"• new contact requests and answers\n" +
	"• booking requests and status changes\n" +
	"• new chat messages\n" +
	"• reminders about contacts you have not closed yet\n\n" +
	"/start - show the chat id to put into your profile"

// StartText приветствие с chat id
func StartText(chatID int64, from *models.User) string {
	name := "there"
	if from != nil && from.FirstName != "" {
		name = from.FirstName
	}

	return fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"Your chat id is %d.\n"+
			"Add it to your Tutor Market profile (telegram_chat_id) to receive notifications here.",
		name, chatID,
	)
}
