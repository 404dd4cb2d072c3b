package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
)

// Service is the entry point for moderation commands and member events.
type Service struct {
	store      Store
	actuator   sanction.Actuator
	notifier   sanction.Notifier
	dispatcher *Dispatcher
	clock      Clock
	system     sanction.Identity
	rejoin     string
}

type Options struct {
	Store      Store
	Actuator   sanction.Actuator
	Notifier   sanction.Notifier
	Dispatcher *Dispatcher
	Clock      Clock
	// System is the bot's own identity, used as actor of automatic actions.
	System       sanction.Identity
	RejoinReason string
}

func New(opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		store:      opts.Store,
		actuator:   opts.Actuator,
		notifier:   opts.Notifier,
		dispatcher: opts.Dispatcher,
		clock:      clock,
		system:     opts.System,
		rejoin:     opts.RejoinReason,
	}
}

// ExecuteDirectAction performs a moderator's command. A zero duration means
// no expiry and a negative one is rejected. When the platform rejects the action its *sanction.ActuatorError
// is returned unchanged and nothing is stored.
func (s *Service) ExecuteDirectAction(
	ctx context.Context,
	kind sanction.Kind,
	target, actor sanction.Identity,
	reason string,
	duration time.Duration,
) (*sanction.Action, error) {
	if duration < 0 {
		return nil, fmt.Errorf("%w: negative duration %v", sanction.ErrInvalidExpiry, duration)
	}

	now := s.clock.Now()
	var expiresAt *time.Time
	if duration > 0 {
		exp := now.Add(duration)
		expiresAt = &exp
	}

	a, err := sanction.Build(kind, target, actor, reason, now, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// apply executes, dispatches and notifies in the order the kind requires.
// The pair stays locked from execution to storage so a concurrent expiry
// reversal cannot interleave with it.
func (s *Service) apply(ctx context.Context, a *sanction.Action) error {
	unlock := s.dispatcher.lock(a.Target.ID, a.Kind)
	defer unlock()

	if a.Kind.NotifyFirst() {
		a.Notify(ctx, s.notifier)
	}
	if err := a.Execute(ctx, s.actuator); err != nil {
		return err
	}
	if err := s.dispatcher.dispatchLocked(ctx, a); err != nil {
		return err
	}
	if !a.Kind.NotifyFirst() {
		a.Notify(ctx, s.notifier)
	}
	return nil
}

// QueryHistory streams a member's actions, most recent first.
func (s *Service) QueryHistory(ctx context.Context, targetID int64) iter.Seq2[*sanction.Action, error] {
	return func(yield func(*sanction.Action, error) bool) {
		for rec, err := range s.store.History(ctx, targetID) {
			if err != nil {
				yield(nil, err)
				return
			}
			a, err := sanction.FromRecord(rec)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(a, nil) {
				return
			}
		}
	}
}

func (s *Service) CountHistory(ctx context.Context, targetID int64) (int64, error) {
	return s.store.CountHistory(ctx, targetID)
}

// DeleteHistory removes entries by id and returns how many existed.
func (s *Service) DeleteHistory(ctx context.Context, ids []int64) (int64, error) {
	n, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	logger.Infof("Deleted %d of %d requested history entries", n, len(ids))
	return n, nil
}

// HandleMemberJoin re-applies a mute that was in effect when the member
// left. The new mute keeps the remaining expiry of the active one.
func (s *Service) HandleMemberJoin(ctx context.Context, member sanction.Identity) error {
	muted, err := s.store.IsMuted(ctx, member.ID)
	if err != nil {
		return fmt.Errorf("load mute state of %d: %w", member.ID, err)
	}
	if !muted {
		return nil
	}

	now := s.clock.Now()
	active, err := s.store.FindActive(ctx, member.ID, sanction.Mute.String())
	if err != nil {
		return fmt.Errorf("load active mute of %d: %w", member.ID, err)
	}
	var expiresAt *time.Time
	if active != nil && active.ExpiresAt != nil {
		if !active.ExpiresAt.After(now) {
			// already expired, the reconciler will lift it
			return nil
		}
		exp := *active.ExpiresAt
		expiresAt = &exp
	}

	a, err := sanction.Build(sanction.Mute, member, s.system, s.rejoin, now, expiresAt)
	if err != nil {
		return err
	}
	if err := s.apply(ctx, a); err != nil {
		return fmt.Errorf("re-apply mute to %s: %w", member, err)
	}
	return nil
}
