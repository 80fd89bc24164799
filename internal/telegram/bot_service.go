// Package telegram is the secondary notification channel. It pushes
// notifications to linked chats and runs the bot that links and unlinks them.
package telegram

import (
	"context"
	"strings"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/localization"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// LinkStorage defines the storage methods the bot needs.
type LinkStorage interface {
	ConsumeTelegramLinkCode(ctx context.Context, code string) (string, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpdateUserFields(ctx context.Context, id string, updates map[string]any) error
}

// BotService receives Telegram updates and handles the account commands.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	sender    Sender
	Storage   LinkStorage
	Localizer *localization.Localizer
	Lang      string
}

// NewBotService authorizes the bot with token.
func NewBotService(token string, store LinkStorage, localizer *localization.Localizer, lang string) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	logger.Info().Str("account", bot.Self.UserName).Msg("telegram bot authorized")

	return &BotService{
		BotAPI:    bot,
		sender:    bot,
		Storage:   store,
		Localizer: localizer,
		Lang:      lang,
	}, nil
}

// Sender exposes the bot as a message sender for the Notifier.
func (s *BotService) Sender() Sender {
	return s.sender
}

// Run long-polls for updates until ctx is done.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.handleUpdate(ctx, update)
		}
	}
}

func (s *BotService) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		s.reply(chatID, "telegram.unknown_command")
		return
	}

	switch msg.Command() {
	case "start":
		s.handleStart(ctx, chatID, strings.TrimSpace(msg.CommandArguments()))
	case "stop":
		s.handleStop(ctx, chatID)
	default:
		s.reply(chatID, "telegram.unknown_command")
	}
}

// handleStart links the chat to the account that requested code. Without a
// code it only greets.
func (s *BotService) handleStart(ctx context.Context, chatID int64, code string) {
	if code == "" {
		s.reply(chatID, "telegram.welcome")
		return
	}

	userID, err := s.Storage.ConsumeTelegramLinkCode(ctx, code)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindNotFound) {
			logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to read telegram link code")
		}
		s.reply(chatID, "telegram.invalid_code")
		return
	}

	// A chat belongs to one account at a time.
	if prev, err := s.Storage.GetUserByTelegramChatID(ctx, chatID); err == nil && prev.ID != userID {
		if err := s.Storage.UpdateUserFields(ctx, prev.ID, map[string]any{"telegram_chat_id": 0}); err != nil {
			logger.Error().Err(err).Str("user_id", prev.ID).Msg("failed to unlink previous telegram account")
		}
	}

	if err := s.Storage.UpdateUserFields(ctx, userID, map[string]any{"telegram_chat_id": chatID}); err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to link telegram chat")
		s.reply(chatID, "telegram.invalid_code")
		return
	}

	logger.Info().Str("user_id", userID).Int64("chat_id", chatID).Msg("telegram chat linked")
	s.reply(chatID, "telegram.linked")
}

func (s *BotService) handleStop(ctx context.Context, chatID int64) {
	user, err := s.Storage.GetUserByTelegramChatID(ctx, chatID)
	if err != nil {
		s.reply(chatID, "telegram.not_linked")
		return
	}
	if err := s.Storage.UpdateUserFields(ctx, user.ID, map[string]any{"telegram_chat_id": 0}); err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to unlink telegram chat")
		return
	}
	s.reply(chatID, "telegram.unlinked")
}

func (s *BotService) reply(chatID int64, key string) {
	msg := tgbotapi.NewMessage(chatID, s.Localizer.GetString(s.Lang, key))
	if _, err := s.sender.Send(msg); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send telegram reply")
	}
}
