package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-sanctions/internal/sanction"
)

func TestDispatchAssignsIDAndPublishes(t *testing.T) {
	store := newMemStore()
	modlog := &fakeModLog{}
	d := NewDispatcher(store, modlog)

	a, err := sanction.Build(sanction.Warn, alice, mod, "spam", t0, nil)
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), a))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, []int64{1}, modlog.published)
}

func TestDispatchSurvivesModLogFailure(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(store, &fakeModLog{err: errBad})

	a, err := sanction.Build(sanction.Kick, alice, mod, "", t0, nil)
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), a))
	assert.Equal(t, []string{"kick"}, store.kinds(alice.ID))
}

func TestDispatchWithoutModLog(t *testing.T) {
	d := NewDispatcher(newMemStore(), nil)
	a, err := sanction.Build(sanction.Warn, alice, mod, "", t0, nil)
	require.NoError(t, err)
	assert.NoError(t, d.Dispatch(context.Background(), a))
}

func TestDispatchReturnsStoreErrors(t *testing.T) {
	store := newMemStore()
	store.recordErr = errBad
	modlog := &fakeModLog{}
	d := NewDispatcher(store, modlog)

	a, err := sanction.Build(sanction.Warn, alice, mod, "", t0, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, d.Dispatch(context.Background(), a), errBad)
	assert.Zero(t, a.ID)
	assert.Empty(t, modlog.published)
}

func TestConcurrentDispatchKeepsOneUnresolved(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(store, &fakeModLog{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created := t0.Add(time.Duration(i) * time.Minute)
			exp := created.Add(time.Hour)
			a, err := sanction.Build(sanction.Ban, alice, mod, "", created, &exp)
			assert.NoError(t, err)
			assert.NoError(t, d.Dispatch(context.Background(), a))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.unresolved(alice.ID, "ban"))
	assert.Zero(t, d.locks.size())
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := newKeyedMutex()
	key := lockKey{1, "ban"}

	unlock := m.Lock(key)
	acquired := make(chan struct{})
	go func() {
		u := m.Lock(key)
		close(acquired)
		u()
	}()

	// other keys are not blocked
	m.Lock(lockKey{2, "ban"})()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return m.size() == 0 }, time.Second, time.Millisecond)
}
