package service

import (
	"context"
	"fmt"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

// Dispatcher is the single path through which an action is persisted and
// logged, whether it came from a command, the reconciler or the correlator.
type Dispatcher struct {
	store  Store
	modlog ModLog
	locks  *keyedMutex
}

func NewDispatcher(store Store, modlog ModLog) *Dispatcher {
	return &Dispatcher{
		store:  store,
		modlog: modlog,
		locks:  newKeyedMutex(),
	}
}

// Dispatch supersedes older unresolved records of the same (target, kind),
// stores a and assigns its id, then publishes it. A publish failure is
// logged and does not fail the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, a *sanction.Action) error {
	unlock := d.lock(a.Target.ID, a.Kind)
	err := d.record(ctx, a)
	unlock()
	if err != nil {
		return err
	}
	d.publish(ctx, a)
	return nil
}

// lock serializes work on one (target, kind) pair and returns the unlock.
func (d *Dispatcher) lock(targetID int64, kind sanction.Kind) func() {
	return d.locks.Lock(lockKey{targetID, kind.String()})
}

// dispatchLocked is Dispatch for a caller already holding a's pair lock.
func (d *Dispatcher) dispatchLocked(ctx context.Context, a *sanction.Action) error {
	if err := d.record(ctx, a); err != nil {
		return err
	}
	d.publish(ctx, a)
	return nil
}

func (d *Dispatcher) record(ctx context.Context, a *sanction.Action) error {
	id, err := d.store.Record(ctx, a.Record())
	if err != nil {
		return fmt.Errorf("record %s for %d: %w", a.Kind, a.Target.ID, err)
	}
	a.ID = id
	logger.Infof("Action #%d: %s %s by %s", a.ID, a.Kind, a.Target, a.Actor)
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, a *sanction.Action) {
	if d.modlog == nil {
		return
	}
	if err := d.modlog.Publish(ctx, a); err != nil {
		logger.Warningf("Failed to publish action #%d to the moderation log: %v", a.ID, err)
	}
}
