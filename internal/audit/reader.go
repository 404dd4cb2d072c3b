package audit

import (
	"context"
	"fmt"
	"time"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

// Reader polls a journal for the entry matching an observed platform event.
// The platform may deliver the event before the entry is journaled, so the
// lookup is retried with a fixed delay.
type Reader struct {
	journal Journal
	delay   time.Duration
	window  time.Duration
	now     func() time.Time
}

func NewReader(journal Journal, delay, window time.Duration) *Reader {
	return &Reader{
		journal: journal,
		delay:   delay,
		window:  window,
		now:     time.Now,
	}
}

// FetchRecentEntry makes up to maxRetries attempts and returns
// ErrEntryNotFound when none of them finds an entry inside the window.
func (r *Reader) FetchRecentEntry(ctx context.Context, targetID int64, kind sanction.Kind, maxRetries int) (*Entry, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		since := r.now().Add(-r.window)
		e, err := r.journal.Latest(ctx, targetID, kind, since)
		if err != nil {
			logger.Warningf("Audit lookup %d/%d for %s on %d failed: %v", attempt, maxRetries, kind, targetID, err)
		} else if e != nil {
			return e, nil
		}

		if attempt == maxRetries {
			break
		}
		if !sleep(ctx, r.delay) {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w: %s on %d", ErrEntryNotFound, kind, targetID)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	<-waitCtx.Done()
	return ctx.Err() == nil
}
