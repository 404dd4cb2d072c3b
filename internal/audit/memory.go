package audit

import (
	"context"
	"sync"
	"time"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

// MemoryJournal is a process-local journal whose entries expire after window.
type MemoryJournal struct {
	entries map[entryKey]Entry
	window  time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

func NewMemoryJournal(window time.Duration) *MemoryJournal {
	return &MemoryJournal{
		entries: make(map[entryKey]Entry),
		window:  window,
		now:     time.Now,
	}
}

func (j *MemoryJournal) Append(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	key := entryKey{e.TargetID, e.Kind}
	if old, ok := j.entries[key]; ok && old.CreatedAt.After(e.CreatedAt) {
		return nil
	}
	j.entries[key] = e
	return nil
}

func (j *MemoryJournal) Latest(_ context.Context, targetID int64, kind sanction.Kind, since time.Time) (*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	e, ok := j.entries[entryKey{targetID, kind}]
	if !ok || e.CreatedAt.Before(since) || j.expired(e) {
		return nil, nil
	}
	return &e, nil
}

func (j *MemoryJournal) expired(e Entry) bool {
	return j.now().After(e.CreatedAt.Add(j.window))
}

// Prune drops expired entries and returns how many were removed.
func (j *MemoryJournal) Prune() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	removed := 0
	for key, e := range j.entries {
		if j.expired(e) {
			delete(j.entries, key)
			removed++
		}
	}
	return removed
}

// Run prunes expired entries every interval until ctx is done.
func (j *MemoryJournal) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := j.Prune(); n > 0 {
				logger.Debugf("Pruned %d expired audit entries", n)
			}
		}
	}
}
