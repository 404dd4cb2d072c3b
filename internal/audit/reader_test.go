package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-sanctions/internal/sanction"
)

// lateJournal only reveals its entry after a number of lookups.
type lateJournal struct {
	mu      sync.Mutex
	calls   int
	visible int
	entry   *Entry
	err     error
}

func (j *lateJournal) Append(context.Context, Entry) error { return nil }

func (j *lateJournal) Latest(context.Context, int64, sanction.Kind, time.Time) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.err != nil {
		return nil, j.err
	}
	if j.calls < j.visible {
		return nil, nil
	}
	return j.entry, nil
}

func TestReaderRetriesUntilFound(t *testing.T) {
	j := &lateJournal{visible: 3, entry: &Entry{TargetID: 1, Kind: sanction.Ban, Actor: mod}}
	r := NewReader(j, time.Millisecond, time.Minute)

	e, err := r.FetchRecentEntry(ctx, 1, sanction.Ban, 3)
	require.NoError(t, err)
	assert.Equal(t, mod, e.Actor)
	assert.Equal(t, 3, j.calls)
}

func TestReaderGivesUp(t *testing.T) {
	j := &lateJournal{visible: 10}
	r := NewReader(j, time.Millisecond, time.Minute)

	_, err := r.FetchRecentEntry(ctx, 1, sanction.Kick, 3)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Equal(t, 3, j.calls)
}

func TestReaderTreatsJournalErrorsAsMisses(t *testing.T) {
	j := &lateJournal{err: errors.New("redis down")}
	r := NewReader(j, 0, time.Minute)

	_, err := r.FetchRecentEntry(ctx, 1, sanction.Kick, 2)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Equal(t, 2, j.calls)
}

func TestReaderStopsOnCancel(t *testing.T) {
	j := &lateJournal{visible: 10}
	r := NewReader(j, time.Hour, time.Minute)

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.FetchRecentEntry(cctx, 1, sanction.Ban, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, 1, j.calls)
}

func TestReaderAppliesWindow(t *testing.T) {
	mj := NewMemoryJournal(time.Hour)
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, mj.Append(ctx, Entry{TargetID: 1, Kind: sanction.Ban, Actor: mod, CreatedAt: old}))

	_, err := NewReader(mj, 0, 2*time.Minute).FetchRecentEntry(ctx, 1, sanction.Ban, 1)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	e, err := NewReader(mj, 0, time.Hour).FetchRecentEntry(ctx, 1, sanction.Ban, 1)
	require.NoError(t, err)
	assert.NotNil(t, e)
}
