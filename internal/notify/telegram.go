package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"messaging_go/internal/domain"
	"messaging_go/internal/localization"
)

// ChatIDResolver maps a marketplace user id to their linked Telegram
// chat. Returns domain.ErrNotFound for users without a link.
type ChatIDResolver interface {
	TelegramChatID(ctx context.Context, userID int64) (int64, error)
}

// TelegramNotifier delivers fallback notifications through a Telegram
// bot to users who linked their account.
type TelegramNotifier struct {
	bot       *tgbotapi.BotAPI
	chats     ChatIDResolver
	localizer *localization.Localizer
}

var _ domain.Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(token string, chats ChatIDResolver, localizer *localization.Localizer) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("notify: telegram bot authorized as %s", bot.Self.UserName)

	return &TelegramNotifier{bot: bot, chats: chats, localizer: localizer}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, kind string, payload map[string]any, language string) error {
	chatID, err := n.chats.TelegramChatID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		// No linked chat; nothing to deliver.
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve chat for user %d: %w", userID, err)
	}

	text := n.localizer.GetString(language, kind)
	if preview, ok := payload["preview"].(string); ok && preview != "" {
		text += "\n" + preview
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
