package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-sanctions/internal/config"
	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

// BotService represents the Telegram bot service
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
	// Self is the bot's own account, the actor of automatic actions.
	Self sanction.Identity
}

// Start blocks while the handler processes updates.
func (b *BotService) Start() error {
	return b.Handler.Start()
}

// Stop waits for running handlers until ctx is done.
func (b *BotService) Stop(ctx context.Context) error {
	return b.Handler.StopWithContext(ctx)
}

// telegoLogger sends telego's own diagnostics through our logger.
type telegoLogger struct{}

func (telegoLogger) Debugf(format string, args ...any) { logger.Debugf("telego: "+format, args...) }
func (telegoLogger) Errorf(format string, args ...any) { logger.Errorf("telego: "+format, args...) }

// Initialize creates the bot, registers the webhook and builds the handler.
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, *WebhookServer, error) {
	if cfg.Bot.Token == "" {
		return nil, nil, fmt.Errorf("bot token is required")
	}

	bot, err := telego.NewBot(cfg.Bot.Token, telego.WithLogger(telegoLogger{}))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	logger.Infof("Authorized on account %s", botUser.Username)

	if err := bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	// derived from the token so restarts keep accepting queued updates
	secretToken := "secure_webhook_token_" + cfg.Bot.Token[len(cfg.Bot.Token)-6:]

	bh, server, err := SetupWebhook(ctx, bot, cfg.Bot.Webhook, secretToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup webhook: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
		Self:    IdentityFromUser(*botUser),
	}, server, nil
}

// IdentityFromUser converts a Telegram account into a sanction identity.
func IdentityFromUser(u telego.User) sanction.Identity {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return sanction.Identity{ID: u.ID, Name: name, Username: u.Username}
}
