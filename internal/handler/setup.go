package handler

import (
	"context"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/sourcegraph/conc"

	"tg-sanctions/internal/audit"
	"tg-sanctions/internal/bot"
	"tg-sanctions/internal/crash"
	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/service"
)

// Handler turns chat_member updates of the managed chat into moderation events.
type Handler struct {
	ctx        context.Context
	chatID     int64
	selfID     int64
	service    *service.Service
	correlator *service.Correlator
	journal    audit.Journal
	wg         conc.WaitGroup
}

// New creates a handler whose background work runs under ctx.
func New(ctx context.Context, chatID, selfID int64, svc *service.Service, correlator *service.Correlator, journal audit.Journal) *Handler {
	return &Handler{
		ctx:        ctx,
		chatID:     chatID,
		selfID:     selfID,
		service:    svc,
		correlator: correlator,
		journal:    journal,
	}
}

// SetupHandlers registers the update handlers on bh.
func (h *Handler) SetupHandlers(bh *th.BotHandler) {
	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		h.handleChatMember(ctx.Context(), update.ChatMember)
		return nil
	}, th.AnyChatMember())

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		h.handleMyChatMember(update.MyChatMember)
		return nil
	}, th.AnyMyChatMember())
}

// WaitForHandlers blocks until background work started by updates finishes.
func (h *Handler) WaitForHandlers() {
	h.wg.Wait()
}

func (h *Handler) handleChatMember(ctx context.Context, upd *telego.ChatMemberUpdated) {
	if upd == nil || upd.Chat.ID != h.chatID {
		return
	}

	user := upd.NewChatMember.MemberUser()
	if user.IsBot {
		return
	}

	transition := classify(stateOf(upd.OldChatMember), stateOf(upd.NewChatMember), upd.From.ID, user.ID)
	if transition == TransitionNone {
		return
	}
	logger.Debugf("Member %d: %s by %d", user.ID, transition, upd.From.ID)

	target := bot.IdentityFromUser(user)

	if transition == TransitionJoin {
		crash.Go(&h.wg, "member-join", func() {
			if err := h.service.HandleMemberJoin(h.ctx, target); err != nil {
				logger.Errorf("Failed to handle join of %s: %v", target, err)
			}
		})
		return
	}

	kind, _ := transition.Kind()
	entry := audit.Entry{
		TargetID:  user.ID,
		Kind:      kind,
		Actor:     bot.IdentityFromUser(upd.From),
		CreatedAt: time.Unix(upd.Date, 0).UTC(),
	}
	if err := h.journal.Append(ctx, entry); err != nil {
		logger.Warningf("Failed to journal %s of %s: %v", kind, target, err)
	}

	crash.Go(&h.wg, "observe-"+kind.String(), func() {
		a, err := h.correlator.Observe(h.ctx, kind, target)
		if err != nil {
			logger.Errorf("Failed to record observed %s of %s: %v", kind, target, err)
			return
		}
		if a != nil {
			logger.Infof("Recorded %s of %s performed by %s outside the bot", kind, target, a.Actor)
		}
	})
}

func (h *Handler) handleMyChatMember(upd *telego.ChatMemberUpdated) {
	if upd == nil || upd.Chat.ID != h.chatID || upd.NewChatMember.MemberUser().ID != h.selfID {
		return
	}
	switch upd.NewChatMember.MemberStatus() {
	case telego.MemberStatusAdministrator, telego.MemberStatusCreator:
		logger.Infof("Bot was promoted to admin in chat %d by user %d", upd.Chat.ID, upd.From.ID)
	default:
		logger.Warningf("Bot is no longer an admin in chat %d (status %s); sanctions will fail",
			upd.Chat.ID, upd.NewChatMember.MemberStatus())
	}
}
