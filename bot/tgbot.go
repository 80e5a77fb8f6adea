package bot

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"zapdesk/internal/lib/sl"
)

// TgBot is the operations alert channel: error reports and service
// lifecycle notices are pushed to a single admin chat.
type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	adminId int64
}

func NewTgBot(apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}

	return &TgBot{
		log:     log.With(sl.Module("tgbot")),
		api:     api,
		adminId: adminId,
	}, nil
}

// SendMessage pushes a plain-text alert to the admin chat.
func (t *TgBot) SendMessage(msg string) {
	if msg == "" {
		return
	}
	_, err := t.api.SendMessage(t.adminId, msg, &tgbotapi.SendMessageOpts{})
	if err != nil {
		t.log.With(
			slog.Int64("id", t.adminId),
		).Warn("sending alert", sl.Err(err))
	}
}
