package service

import (
	"context"
	"errors"
	"fmt"

	"tg-sanctions/internal/audit"
	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

var ErrNotObservable = errors.New("action kind cannot be observed on the platform")

// Correlator turns sanctions seen directly on the platform into recorded
// actions attributed to whoever performed them.
type Correlator struct {
	reader     AuditTrailReader
	dispatcher *Dispatcher
	system     sanction.Identity
	retries    int
}

func NewCorrelator(reader AuditTrailReader, dispatcher *Dispatcher, system sanction.Identity, retries int) *Correlator {
	return &Correlator{
		reader:     reader,
		dispatcher: dispatcher,
		system:     system,
		retries:    retries,
	}
}

func observable(kind sanction.Kind) bool {
	switch kind {
	case sanction.Ban, sanction.Unban, sanction.Kick:
		return true
	}
	return false
}

// Observe records the action behind a platform event. It returns nil, nil
// when the event was performed by the bot itself, which has already
// recorded it, or when no audit entry shows up in time.
func (c *Correlator) Observe(ctx context.Context, kind sanction.Kind, target sanction.Identity) (*sanction.Action, error) {
	if !observable(kind) {
		return nil, fmt.Errorf("%w: %s", ErrNotObservable, kind)
	}

	entry, err := c.reader.FetchRecentEntry(ctx, target.ID, kind, c.retries)
	if errors.Is(err, audit.ErrEntryNotFound) {
		logger.Debugf("No audit entry for %s of %s, dropping event", kind, target)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch audit entry for %s of %d: %w", kind, target.ID, err)
	}
	if entry.Actor.ID == c.system.ID {
		return nil, nil
	}

	a, err := sanction.Build(kind, target, entry.Actor, entry.Reason, entry.CreatedAt, nil)
	if err != nil {
		return nil, err
	}
	if err := c.dispatcher.Dispatch(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
