package controller

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// TelegramNotifier best-effort доставка уведомлений через бота
type TelegramNotifier struct {
	bot         *bot.Bot
	adminChatID int64
}

func NewTelegramNotifier(b *bot.Bot, adminChatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: b, adminChatID: adminChatID}
}

// NotifyClient отправляет сообщение клиенту
func (n *TelegramNotifier) NotifyClient(ctx context.Context, chatID int64, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// NotifyAdmin отправляет сообщение администратору.
// Без настроенного ADMIN_CHAT_ID уведомления молча пропускаются.
func (n *TelegramNotifier) NotifyAdmin(ctx context.Context, text string) error {
	if n.adminChatID == 0 {
		return nil
	}
	return n.NotifyClient(ctx, n.adminChatID, text)
}
