package bot

import (
	"context"
	"sync"

	"github.com/mymmrac/telego"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	banErr   error
	unbanErr error
	restrict []telego.ChatPermissions
	unbans   []telego.UnbanChatMemberParams
	chat     *telego.ChatFullInfo
	member   telego.ChatMember
	memErr   error
	sent     []telego.SendMessageParams
	sendErr  error
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) BanChatMember(_ context.Context, _ *telego.BanChatMemberParams) error {
	f.record("ban")
	return f.banErr
}

func (f *fakeAPI) UnbanChatMember(_ context.Context, p *telego.UnbanChatMemberParams) error {
	f.record("unban")
	f.unbans = append(f.unbans, *p)
	return f.unbanErr
}

func (f *fakeAPI) RestrictChatMember(_ context.Context, p *telego.RestrictChatMemberParams) error {
	f.record("restrict")
	f.restrict = append(f.restrict, p.Permissions)
	return nil
}

func (f *fakeAPI) GetChat(_ context.Context, _ *telego.GetChatParams) (*telego.ChatFullInfo, error) {
	f.record("get_chat")
	if f.chat == nil {
		return &telego.ChatFullInfo{}, nil
	}
	return f.chat, nil
}

func (f *fakeAPI) GetChatMember(_ context.Context, _ *telego.GetChatMemberParams) (telego.ChatMember, error) {
	f.record("get_chat_member")
	return f.member, f.memErr
}

func (f *fakeAPI) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	f.record("send")
	f.sent = append(f.sent, *p)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &telego.Message{}, nil
}
