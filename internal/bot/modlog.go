package bot

import (
	"context"
	"fmt"
	"html"
	"regexp"

	"github.com/mymmrac/telego"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
	"tg-sanctions/internal/service"
)

// ChatModLog posts every dispatched action to a log chat.
type ChatModLog struct {
	api    ChatAPI
	chatID int64
}

// NewModLog returns a chat-backed log, or a logger-only one when chatID is 0.
func NewModLog(api ChatAPI, chatID int64) service.ModLog {
	if chatID == 0 {
		return LoggerModLog{}
	}
	return &ChatModLog{api: api, chatID: chatID}
}

func (m *ChatModLog) Publish(ctx context.Context, a *sanction.Action) error {
	_, err := m.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: m.chatID},
		Text:      a.LogMessage(),
		ParseMode: telego.ModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send log message to %d: %w", m.chatID, err)
	}
	return nil
}

// LoggerModLog writes the moderation log to the application log.
type LoggerModLog struct{}

var tags = regexp.MustCompile(`<[^>]+>`)

func (LoggerModLog) Publish(_ context.Context, a *sanction.Action) error {
	logger.Infof("[modlog] %s", html.UnescapeString(tags.ReplaceAllString(a.LogMessage(), "")))
	return nil
}
