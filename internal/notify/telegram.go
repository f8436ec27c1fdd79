// Package notify pushes moderation alerts to the admin Telegram chat.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"whobible/backend/internal/models"
)

// Telegram is a send-only notifier. A nil *Telegram is valid and silently
// drops notifications, so deployments without a bot token need no checks.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info("telegram notifier authorized", zap.String("account", bot.Self.UserName))
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

func (t *Telegram) NotifyReport(report *models.Report) error {
	if t == nil {
		return nil
	}
	text := fmt.Sprintf(
		"New %s report %s\nTarget: %s\nRoom: %s\n%s",
		report.Category, report.ID, report.TargetName, report.RoomCode, report.Message,
	)
	if report.Status == models.ReportStatusEscalated {
		text = "ESCALATED — repeat target\n" + text
	}
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}
