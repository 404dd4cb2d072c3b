package service

import (
	"context"
	"errors"
	"iter"
	"time"

	"tg-sanctions/internal/audit"
	"tg-sanctions/internal/models"
	"tg-sanctions/internal/sanction"
)

// ErrUnresolvable means the platform no longer knows the user.
var ErrUnresolvable = errors.New("target cannot be resolved")

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Store is the persistence contract the moderation flow relies on.
type Store interface {
	Record(ctx context.Context, rec models.ActionRecord) (int64, error)
	FindExpired(ctx context.Context, now time.Time) ([]models.ActionRecord, error)
	FindActive(ctx context.Context, targetID int64, kind string) (*models.ActionRecord, error)
	MarkResolved(ctx context.Context, id int64) error
	History(ctx context.Context, targetID int64) iter.Seq2[models.ActionRecord, error]
	CountHistory(ctx context.Context, targetID int64) (int64, error)
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	IsMuted(ctx context.Context, userID int64) (bool, error)
}

// MemberStatus is a member's standing in the community.
type MemberStatus string

const (
	StatusUnknown    MemberStatus = ""
	StatusCreator    MemberStatus = "creator"
	StatusAdmin      MemberStatus = "administrator"
	StatusMember     MemberStatus = "member"
	StatusRestricted MemberStatus = "restricted"
	StatusLeft       MemberStatus = "left"
	StatusBanned     MemberStatus = "kicked"
)

// Directory resolves user ids to live identities.
type Directory interface {
	Lookup(ctx context.Context, userID int64) (sanction.Identity, MemberStatus, error)
}

// ModLog publishes dispatched actions to the moderation log.
type ModLog interface {
	Publish(ctx context.Context, a *sanction.Action) error
}

// AuditTrailReader finds who performed an action observed on the platform.
type AuditTrailReader interface {
	FetchRecentEntry(ctx context.Context, targetID int64, kind sanction.Kind, maxRetries int) (*audit.Entry, error)
}
