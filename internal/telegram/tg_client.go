package telegram

import (
	"context"
	"html"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the bot API used to deliver messages.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserLookup resolves the recipient of a notification.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Notifier pushes notifications to members who linked a Telegram chat.
type Notifier struct {
	bot   Sender
	users UserLookup
}

func NewNotifier(bot Sender, users UserLookup) *Notifier {
	return &Notifier{bot: bot, users: users}
}

func (n *Notifier) Name() string { return "telegram" }

// Push sends the notification title and body to the recipient's linked chat.
// Members without a linked chat are skipped silently.
func (n *Notifier) Push(ctx context.Context, notif *models.Notification) error {
	user, err := n.users.GetUser(ctx, notif.RecipientID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.TelegramChatID == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(user.TelegramChatID, formatNotification(notif))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = n.bot.Send(msg)
	return err
}

func formatNotification(n *models.Notification) string {
	text := "<b>" + html.EscapeString(n.Title) + "</b>"
	if n.Body != "" {
		text += "\n" + html.EscapeString(n.Body)
	}
	return text
}
