package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/atomic"

	"tg-sanctions/internal/crash"
	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/models"
	"tg-sanctions/internal/sanction"
)

type ReconcilerConfig struct {
	Interval        time.Duration
	ReversalTimeout time.Duration
	// Reason is attached to every automatic reversal.
	Reason string
}

// Reconciler periodically reverses time-bound actions whose expiry passed.
type Reconciler struct {
	store      Store
	directory  Directory
	actuator   sanction.Actuator
	notifier   sanction.Notifier
	dispatcher *Dispatcher
	clock      Clock
	system     sanction.Identity
	cfg        ReconcilerConfig

	wg       conc.WaitGroup
	mu       sync.Mutex
	inflight map[int64]struct{}
	running  atomic.Bool
	// held by Run for as long as it can spawn reversals
	loop sync.Mutex

	// reversals outlive Run's context so shutdown can let them finish
	reversalCtx    context.Context
	cancelReversal context.CancelFunc
}

func NewReconciler(
	store Store,
	directory Directory,
	actuator sanction.Actuator,
	notifier sanction.Notifier,
	dispatcher *Dispatcher,
	clock Clock,
	system sanction.Identity,
	cfg ReconcilerConfig,
) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		store:          store,
		directory:      directory,
		actuator:       actuator,
		notifier:       notifier,
		dispatcher:     dispatcher,
		clock:          clock,
		system:         system,
		cfg:            cfg,
		inflight:       make(map[int64]struct{}),
		reversalCtx:    ctx,
		cancelReversal: cancel,
	}
}

// Run waits for ready, then ticks every interval until ctx is done.
// Only one Run may be active at a time.
// Wait only returns after Run has.
func (r *Reconciler) Run(ctx context.Context, ready <-chan struct{}) {
	select {
	case <-ctx.Done():
		return
	case <-ready:
	}

	if !r.running.CompareAndSwap(false, true) {
		logger.Warningf("Reconciler is already running")
		return
	}
	defer r.running.Store(false)

	r.loop.Lock()
	defer r.loop.Unlock()

	logger.Infof("Reconciler started with interval %v", r.cfg.Interval)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Reconciler stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick spawns a reversal for every expired record that is not already being
// reversed and returns how many it started. It does not wait for them.
func (r *Reconciler) Tick(ctx context.Context) int {
	records, err := r.store.FindExpired(ctx, r.clock.Now())
	if err != nil {
		logger.Errorf("Reconciler failed to load expired actions: %v", err)
		return 0
	}

	spawned := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		if !r.claim(rec.ID) {
			continue
		}
		spawned++
		crash.Go(&r.wg, "reverse-action", func() {
			defer r.release(rec.ID)
			r.reverse(rec)
		})
	}
	return spawned
}

func (r *Reconciler) claim(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

func (r *Reconciler) release(id int64) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

func (r *Reconciler) reverse(rec models.ActionRecord) {
	ctx, cancel := context.WithTimeout(r.reversalCtx, r.cfg.ReversalTimeout)
	defer cancel()

	original, err := sanction.FromRecord(rec)
	if err != nil {
		logger.Errorf("Cannot reverse action #%d: %v", rec.ID, err)
		return
	}
	inverse, ok := original.Kind.Inverse()
	if !ok {
		logger.Errorf("Cannot reverse action #%d: %s has no inverse", rec.ID, original.Kind)
		return
	}

	target, status, err := r.directory.Lookup(ctx, rec.TargetID)
	if errors.Is(err, ErrUnresolvable) {
		logger.Debugf("Skipping reversal of action #%d: user %d cannot be resolved", rec.ID, rec.TargetID)
		return
	}
	if err != nil {
		logger.Warningf("Reversal of action #%d: lookup of %d failed: %v", rec.ID, rec.TargetID, err)
		return
	}
	if original.Kind == sanction.Ban && status != StatusBanned {
		logger.Debugf("Skipping reversal of action #%d: %s is no longer banned", rec.ID, target)
		return
	}

	// a newer action on the pair supersedes this one and must stay in effect
	unlock := r.dispatcher.lock(rec.TargetID, original.Kind)
	defer unlock()
	active, err := r.store.FindActive(ctx, rec.TargetID, rec.Kind)
	if err != nil {
		logger.Warningf("Reversal of action #%d: loading the active %s failed: %v", rec.ID, original.Kind, err)
		return
	}
	if active == nil || active.ID != rec.ID {
		logger.Debugf("Skipping reversal of action #%d: superseded by a newer %s", rec.ID, original.Kind)
		return
	}

	reversal, err := sanction.Build(inverse, target, r.system, r.cfg.Reason, r.clock.Now(), nil)
	if err != nil {
		logger.Errorf("Cannot build reversal of action #%d: %v", rec.ID, err)
		return
	}
	if err := reversal.Execute(ctx, r.actuator); err != nil {
		logger.Warningf("Reversal of action #%d failed, will retry: %v", rec.ID, err)
		return
	}
	if err := r.dispatcher.Dispatch(ctx, reversal); err != nil {
		logger.Errorf("Reversal of action #%d executed but not recorded, will retry: %v", rec.ID, err)
		return
	}
	reversal.Notify(ctx, r.notifier)

	if err := r.store.MarkResolved(ctx, rec.ID); err != nil {
		logger.Errorf("Failed to mark action #%d resolved: %v", rec.ID, err)
		return
	}
	logger.Infof("Action #%d expired and was reversed by #%d", rec.ID, reversal.ID)
}

// Wait blocks until Run has returned and in-flight reversals finish or
// timeout passes. Call it after cancelling Run's context. Reversals still
// running after the timeout are cancelled and left for the next start.
// It reports whether everything finished in time.
func (r *Reconciler) Wait(timeout time.Duration) bool {
	r.loop.Lock()
	r.loop.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		logger.Warningf("Reversals still running after %v, cancelling them", timeout)
		r.cancelReversal()
		<-done
		return false
	}
}
