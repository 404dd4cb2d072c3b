package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"

	"tg-sanctions/internal/sanction"
	"tg-sanctions/internal/service"
)

// Directory looks members up in the managed supergroup.
type Directory struct {
	api    ChatAPI
	chatID int64
}

func NewDirectory(api ChatAPI, chatID int64) *Directory {
	return &Directory{api: api, chatID: chatID}
}

func (d *Directory) Lookup(ctx context.Context, userID int64) (sanction.Identity, service.MemberStatus, error) {
	member, err := d.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: d.chatID},
		UserID: userID,
	})
	if err != nil {
		if errors.Is(classify(err), sanction.ErrNotFound) {
			return sanction.Identity{}, service.StatusUnknown, fmt.Errorf("%w: %d: %v", service.ErrUnresolvable, userID, err)
		}
		return sanction.Identity{}, service.StatusUnknown, fmt.Errorf("get chat member %d: %w", userID, err)
	}
	return IdentityFromUser(member.MemberUser()), service.MemberStatus(member.MemberStatus()), nil
}
