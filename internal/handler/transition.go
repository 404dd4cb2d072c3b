package handler

import (
	"github.com/mymmrac/telego"

	"tg-sanctions/internal/sanction"
)

// Transition is what a chat_member update means for moderation.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionJoin
	TransitionBan
	TransitionUnban
	TransitionKick
)

func (t Transition) String() string {
	switch t {
	case TransitionJoin:
		return "join"
	case TransitionBan:
		return "ban"
	case TransitionUnban:
		return "unban"
	case TransitionKick:
		return "kick"
	default:
		return "none"
	}
}

// Kind returns the observed sanction, if the transition is one.
func (t Transition) Kind() (sanction.Kind, bool) {
	switch t {
	case TransitionBan:
		return sanction.Ban, true
	case TransitionUnban:
		return sanction.Unban, true
	case TransitionKick:
		return sanction.Kick, true
	}
	return sanction.KindUnknown, false
}

// memberState is the part of a telego.ChatMember the classifier needs.
type memberState struct {
	status   string
	isMember bool
}

func stateOf(m telego.ChatMember) memberState {
	if m == nil {
		return memberState{status: telego.MemberStatusLeft}
	}
	return memberState{status: m.MemberStatus(), isMember: m.MemberIsMember()}
}

// classify decides what changed between two member states. actorID is the
// user who caused the change and memberID the user it happened to.
func classify(before, after memberState, actorID, memberID int64) Transition {
	switch {
	case after.status == telego.MemberStatusBanned && before.status != telego.MemberStatusBanned:
		return TransitionBan
	case before.status == telego.MemberStatusBanned && after.status == telego.MemberStatusLeft:
		return TransitionUnban
	case !before.isMember && after.isMember:
		return TransitionJoin
	case before.isMember && after.status == telego.MemberStatusLeft && actorID != memberID:
		return TransitionKick
	}
	return TransitionNone
}
