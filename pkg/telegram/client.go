package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier is a send-only Telegram client used to announce finished rota
// runs to a staff channel.
type Notifier struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Notifier{
		Bot:    bot,
		ChatID: chatID,
	}, nil
}

// NotifyRun posts a short summary of a generation run.
func (n *Notifier) NotifyRun(runID, status, filePath string, slackDays int) error {
	text := fmt.Sprintf("Rota run %s finished: %s\nFile: %s", runID, status, filePath)
	if slackDays > 0 {
		text += fmt.Sprintf("\nWarning: %d quota day(s) dropped to stay feasible", slackDays)
	}
	_, err := n.Bot.Send(tgbotapi.NewMessage(n.ChatID, text))
	return err
}
