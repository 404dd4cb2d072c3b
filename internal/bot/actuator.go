package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

// ChatAPI is the part of the Bot API the moderation adapters use.
type ChatAPI interface {
	BanChatMember(ctx context.Context, params *telego.BanChatMemberParams) error
	UnbanChatMember(ctx context.Context, params *telego.UnbanChatMemberParams) error
	RestrictChatMember(ctx context.Context, params *telego.RestrictChatMemberParams) error
	GetChat(ctx context.Context, params *telego.GetChatParams) (*telego.ChatFullInfo, error)
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

var _ ChatAPI = (*telego.Bot)(nil)

// Actuator applies sanctions in the managed supergroup. Telegram has no
// roles, so the muted role is a restriction without send permissions.
type Actuator struct {
	api    ChatAPI
	chatID int64
}

func NewActuator(api ChatAPI, chatID int64) *Actuator {
	return &Actuator{api: api, chatID: chatID}
}

func (a *Actuator) chat() telego.ChatID {
	return telego.ChatID{ID: a.chatID}
}

// Kick removes the member but lets them join again.
func (a *Actuator) Kick(ctx context.Context, target sanction.Identity, reason string) error {
	if err := a.ban(ctx, "kick", target); err != nil {
		return err
	}
	err := a.api.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       a.chat(),
		UserID:       target.ID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return actuatorError("kick", target.ID, err)
	}
	logger.Infof("Kicked %s: %s", target, reason)
	return nil
}

func (a *Actuator) Ban(ctx context.Context, target sanction.Identity, reason string) error {
	if err := a.ban(ctx, "ban", target); err != nil {
		return err
	}
	logger.Infof("Banned %s: %s", target, reason)
	return nil
}

func (a *Actuator) ban(ctx context.Context, op string, target sanction.Identity) error {
	err := a.api.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID: a.chat(),
		UserID: target.ID,
	})
	return actuatorError(op, target.ID, err)
}

// Unban is a no-op for members that are not banned.
func (a *Actuator) Unban(ctx context.Context, target sanction.Identity, reason string) error {
	err := a.api.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       a.chat(),
		UserID:       target.ID,
		OnlyIfBanned: true,
	})
	if err != nil {
		return actuatorError("unban", target.ID, err)
	}
	logger.Infof("Unbanned %s: %s", target, reason)
	return nil
}

func (a *Actuator) AddRole(ctx context.Context, target sanction.Identity, role string) error {
	if role != sanction.MutedRole {
		return &sanction.ActuatorError{Op: "add_role", Target: target.ID, Err: fmt.Errorf("unsupported role %q", role)}
	}
	err := a.api.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:      a.chat(),
		UserID:      target.ID,
		Permissions: telego.ChatPermissions{},
	})
	return actuatorError("add_role", target.ID, err)
}

// RemoveRole lifts the mute by restoring the chat's default permissions.
func (a *Actuator) RemoveRole(ctx context.Context, target sanction.Identity, role string) error {
	if role != sanction.MutedRole {
		return &sanction.ActuatorError{Op: "remove_role", Target: target.ID, Err: fmt.Errorf("unsupported role %q", role)}
	}

	permissions := telego.ChatPermissions{}
	chatInfo, err := a.api.GetChat(ctx, &telego.GetChatParams{ChatID: a.chat()})
	if err != nil {
		return actuatorError("remove_role", target.ID, err)
	}
	if chatInfo.Permissions != nil {
		permissions = *chatInfo.Permissions
	}

	err = a.api.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:      a.chat(),
		UserID:      target.ID,
		Permissions: permissions,
	})
	return actuatorError("remove_role", target.ID, err)
}

// Notifier delivers private messages. Telegram refuses them unless the
// member has started the bot, so failures are expected.
type Notifier struct {
	api ChatAPI
}

func NewNotifier(api ChatAPI) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) DirectMessage(ctx context.Context, target sanction.Identity, content string) error {
	_, err := n.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: target.ID},
		Text:      content,
		ParseMode: telego.ModeHTML,
	})
	return err
}
