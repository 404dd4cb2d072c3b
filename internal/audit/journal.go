package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-sanctions/internal/sanction"
)

var ErrEntryNotFound = errors.New("audit entry not found")

// Entry records who performed a moderation action on the platform.
type Entry struct {
	TargetID  int64
	Kind      sanction.Kind
	Actor     sanction.Identity
	Reason    string
	CreatedAt time.Time
}

// Journal keeps the latest entry per (target, kind).
type Journal interface {
	Append(ctx context.Context, e Entry) error
	// Latest returns the newest entry created at or after since, or nil.
	Latest(ctx context.Context, targetID int64, kind sanction.Kind, since time.Time) (*Entry, error)
}

type entryKey struct {
	target int64
	kind   sanction.Kind
}

func (k entryKey) String() string {
	return fmt.Sprintf("%d:%s", k.target, k.kind)
}
