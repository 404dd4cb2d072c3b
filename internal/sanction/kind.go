package sanction

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a sanction variant.
type Kind uint8

const (
	KindUnknown Kind = iota
	Kick
	Ban
	Unban
	Warn
	Mute
	Unmute
)

// MutedRole is the role requested from the Actuator by Mute and Unmute.
const MutedRole = "muted"

// Polarity tells logs and notifications whether a kind restricts or restores.
type Polarity string

const (
	Punitive    Polarity = "punitive"
	Restorative Polarity = "restorative"
)

var ErrUnknownKind = errors.New("unknown action kind")

type executor func(ctx context.Context, a Actuator, target Identity, reason string) error

type kindSpec struct {
	tag       string
	title     string
	pastTense string
	emoji     string
	polarity  Polarity
	timeBound bool
	inverse   Kind
	// notifyFirst kinds remove the member, so the message must go out before execution
	notifyFirst bool
	execute     executor
}

var kinds = map[Kind]kindSpec{
	Kick: {
		tag: "kick", title: "Kicked", pastTense: "kicked", emoji: "\U0001F462",
		polarity: Punitive, notifyFirst: true,
		execute: func(ctx context.Context, a Actuator, target Identity, reason string) error {
			return a.Kick(ctx, target, reason)
		},
	},
	Ban: {
		tag: "ban", title: "Banned", pastTense: "banned", emoji: "\U0001F528",
		polarity: Punitive, timeBound: true, inverse: Unban, notifyFirst: true,
		execute: func(ctx context.Context, a Actuator, target Identity, reason string) error {
			return a.Ban(ctx, target, reason)
		},
	},
	Unban: {
		tag: "unban", title: "Unbanned", pastTense: "unbanned", emoji: "\U0001F513",
		polarity: Restorative,
		execute: func(ctx context.Context, a Actuator, target Identity, reason string) error {
			return a.Unban(ctx, target, reason)
		},
	},
	Warn: {
		tag: "warn", title: "Warned", pastTense: "warned", emoji: "⚠️",
		polarity: Punitive,
		execute:  func(context.Context, Actuator, Identity, string) error { return nil },
	},
	Mute: {
		tag: "mute", title: "Muted", pastTense: "muted", emoji: "\U0001F507",
		polarity: Punitive, timeBound: true, inverse: Unmute,
		execute: func(ctx context.Context, a Actuator, target Identity, _ string) error {
			return a.AddRole(ctx, target, MutedRole)
		},
	},
	Unmute: {
		tag: "unmute", title: "Unmuted", pastTense: "unmuted", emoji: "\U0001F508",
		polarity: Restorative,
		execute: func(ctx context.Context, a Actuator, target Identity, _ string) error {
			return a.RemoveRole(ctx, target, MutedRole)
		},
	},
}

var registry = buildRegistry()

func buildRegistry() map[string]Kind {
	r := make(map[string]Kind, len(kinds))
	for k, spec := range kinds {
		r[spec.tag] = k
	}
	return r
}

// ValidateRegistry checks the kind table is internally consistent.
// It is run once at startup, before any record is loaded.
func ValidateRegistry() error {
	seen := make(map[string]Kind, len(kinds))
	for k, spec := range kinds {
		if spec.tag == "" {
			return fmt.Errorf("kind %d has no tag", k)
		}
		if other, dup := seen[spec.tag]; dup {
			return fmt.Errorf("kinds %d and %d share tag %q", other, k, spec.tag)
		}
		seen[spec.tag] = k
		if spec.execute == nil {
			return fmt.Errorf("kind %q has no executor", spec.tag)
		}
		if spec.timeBound {
			inv, ok := kinds[spec.inverse]
			if !ok {
				return fmt.Errorf("time-bound kind %q has no registered inverse", spec.tag)
			}
			if inv.timeBound {
				return fmt.Errorf("inverse %q of %q must not be time-bound", inv.tag, spec.tag)
			}
		}
	}
	if len(registry) != len(kinds) {
		return fmt.Errorf("registry has %d tags for %d kinds", len(registry), len(kinds))
	}
	return nil
}

// ParseKind maps a stored tag back to its Kind.
func ParseKind(tag string) (Kind, error) {
	k, ok := registry[tag]
	if !ok {
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, tag)
	}
	return k, nil
}

// Kinds returns every registered kind in declaration order.
func Kinds() []Kind {
	return []Kind{Kick, Ban, Unban, Warn, Mute, Unmute}
}

func (k Kind) spec() (kindSpec, bool) {
	s, ok := kinds[k]
	return s, ok
}

func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// String returns the storage tag.
func (k Kind) String() string {
	if s, ok := k.spec(); ok {
		return s.tag
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Title() string     { return kinds[k].title }
func (k Kind) PastTense() string { return kinds[k].pastTense }
func (k Kind) Emoji() string     { return kinds[k].emoji }
func (k Kind) Polarity() Polarity {
	return kinds[k].polarity
}

// TimeBound reports whether the kind may carry an expiry.
func (k Kind) TimeBound() bool { return kinds[k].timeBound }

// NotifyFirst reports whether the member must be notified before execution.
func (k Kind) NotifyFirst() bool { return kinds[k].notifyFirst }

// Inverse returns the kind that reverses k, if any.
func (k Kind) Inverse() (Kind, bool) {
	s, ok := k.spec()
	if !ok || !s.timeBound {
		return KindUnknown, false
	}
	return s.inverse, true
}
