package audit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-sanctions/internal/sanction"
)

var (
	ctx = context.Background()
	mod = sanction.Identity{ID: 7, Name: "Mod", Username: "mod"}
)

func newRedisJournal(t *testing.T, window time.Duration) (*miniredis.Miniredis, *RedisJournal) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, NewRedisJournal(client, "test:", window)
}

func journals(t *testing.T) map[string]Journal {
	_, rj := newRedisJournal(t, time.Minute)
	return map[string]Journal{
		"memory": NewMemoryJournal(time.Minute),
		"redis":  rj,
	}
}

func TestJournalLatest(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			now := time.Now().UTC().Truncate(time.Millisecond)
			require.NoError(t, j.Append(ctx, Entry{TargetID: 42, Kind: sanction.Ban, Actor: mod, Reason: "raid", CreatedAt: now}))

			e, err := j.Latest(ctx, 42, sanction.Ban, now.Add(-time.Second))
			require.NoError(t, err)
			require.NotNil(t, e)
			assert.Equal(t, mod, e.Actor)
			assert.Equal(t, "raid", e.Reason)
			assert.True(t, now.Equal(e.CreatedAt))
			assert.Equal(t, int64(42), e.TargetID)
			assert.Equal(t, sanction.Ban, e.Kind)

			e, err = j.Latest(ctx, 42, sanction.Kick, now.Add(-time.Second))
			require.NoError(t, err)
			assert.Nil(t, e)

			e, err = j.Latest(ctx, 42, sanction.Ban, now.Add(time.Second))
			require.NoError(t, err)
			assert.Nil(t, e, "entries before since must not match")
		})
	}
}

func TestMemoryJournalKeepsNewest(t *testing.T) {
	j := NewMemoryJournal(time.Hour)
	now := time.Now()
	require.NoError(t, j.Append(ctx, Entry{TargetID: 1, Kind: sanction.Kick, Actor: mod, CreatedAt: now}))
	require.NoError(t, j.Append(ctx, Entry{TargetID: 1, Kind: sanction.Kick, Actor: sanction.Placeholder(9), CreatedAt: now.Add(-time.Minute)}))

	e, err := j.Latest(ctx, 1, sanction.Kick, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, mod, e.Actor)
}

func TestMemoryJournalExpires(t *testing.T) {
	j := NewMemoryJournal(time.Minute)
	base := time.Now()
	j.now = func() time.Time { return base }
	require.NoError(t, j.Append(ctx, Entry{TargetID: 1, Kind: sanction.Ban, Actor: mod, CreatedAt: base}))
	require.NoError(t, j.Append(ctx, Entry{TargetID: 2, Kind: sanction.Ban, Actor: mod, CreatedAt: base.Add(time.Minute)}))

	j.now = func() time.Time { return base.Add(90 * time.Second) }
	e, err := j.Latest(ctx, 1, sanction.Ban, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, e)

	assert.Equal(t, 1, j.Prune())
	e, err = j.Latest(ctx, 2, sanction.Ban, time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestMemoryJournalRunStopsOnCancel(t *testing.T) {
	j := NewMemoryJournal(time.Minute)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		j.Run(runCtx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisJournalExpires(t *testing.T) {
	mr, j := newRedisJournal(t, time.Minute)
	now := time.Now()
	require.NoError(t, j.Append(ctx, Entry{TargetID: 1, Kind: sanction.Unban, Actor: mod, CreatedAt: now}))
	assert.True(t, mr.Exists("test:audit:1:unban"))

	mr.FastForward(2 * time.Minute)
	e, err := j.Latest(ctx, 1, sanction.Unban, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestRedisJournalRejectsCorruptHash(t *testing.T) {
	mr, j := newRedisJournal(t, time.Minute)
	mr.HSet("test:audit:1:ban", "actor_id", "not-a-number", "created_at", "1")

	_, err := j.Latest(ctx, 1, sanction.Ban, time.Time{})
	assert.Error(t, err)
}
