package sanction

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/models"
)

var (
	ErrNotTimeBound  = errors.New("action kind is not time-bound")
	ErrInvalidExpiry = errors.New("expiry must be after creation")
	ErrCorruptRecord = errors.New("corrupt action record")
)

// Action is a single sanction. Resolved is only meaningful when ExpiresAt is set.
type Action struct {
	ID        int64
	Kind      Kind
	Target    Identity
	Actor     Identity
	Reason    string
	CreatedAt time.Time
	ExpiresAt *time.Time
	Resolved  bool
}

// Build validates and assembles an Action. A zero createdAt means now.
func Build(kind Kind, target, actor Identity, reason string, createdAt time.Time, expiresAt *time.Time) (*Action, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	a := &Action{
		Kind:      kind,
		Target:    target,
		Actor:     actor,
		Reason:    reason,
		CreatedAt: createdAt.UTC(),
	}
	if expiresAt != nil {
		if !kind.TimeBound() {
			return nil, fmt.Errorf("%w: %s", ErrNotTimeBound, kind)
		}
		exp := expiresAt.UTC()
		if !exp.After(a.CreatedAt) {
			return nil, ErrInvalidExpiry
		}
		a.ExpiresAt = &exp
	}
	return a, nil
}

// Duration returns how long the sanction lasts, or false when unbounded.
func (a *Action) Duration() (time.Duration, bool) {
	if a.ExpiresAt == nil {
		return 0, false
	}
	return a.ExpiresAt.Sub(a.CreatedAt), true
}

// Record converts the action to its persisted shape.
func (a *Action) Record() models.ActionRecord {
	rec := models.ActionRecord{
		ID:        a.ID,
		TargetID:  a.Target.ID,
		ActorID:   a.Actor.ID,
		Kind:      a.Kind.String(),
		CreatedAt: a.CreatedAt,
	}
	if a.Reason != "" {
		reason := a.Reason
		rec.Reason = &reason
	}
	if a.ExpiresAt != nil {
		exp := *a.ExpiresAt
		resolved := a.Resolved
		rec.ExpiresAt = &exp
		rec.Resolved = &resolved
	}
	return rec
}

// FromRecord rebuilds an Action from storage. Target and actor come back as
// placeholders. An unknown kind tag is a data-integrity error.
func FromRecord(rec models.ActionRecord) (*Action, error) {
	kind, err := ParseKind(rec.Kind)
	if err != nil {
		return nil, fmt.Errorf("action %d: %w", rec.ID, err)
	}
	if (rec.ExpiresAt == nil) != (rec.Resolved == nil) {
		return nil, fmt.Errorf("action %d: %w: expires_at and resolved disagree", rec.ID, ErrCorruptRecord)
	}

	a := &Action{
		ID:        rec.ID,
		Kind:      kind,
		Target:    Placeholder(rec.TargetID),
		Actor:     Placeholder(rec.ActorID),
		CreatedAt: rec.CreatedAt,
	}
	if rec.Reason != nil {
		a.Reason = *rec.Reason
	}
	if rec.ExpiresAt != nil {
		if !kind.TimeBound() {
			return nil, fmt.Errorf("action %d: %w: %s carries an expiry", rec.ID, ErrCorruptRecord, kind)
		}
		exp := *rec.ExpiresAt
		a.ExpiresAt = &exp
		a.Resolved = *rec.Resolved
	}
	return a, nil
}

func (a *Action) actuatorReason() string {
	if a.Reason != "" {
		return a.Reason
	}
	return fmt.Sprintf(models.GetTranslation(models.LangEnglish, "done_by"), a.Actor)
}

// Execute performs the kind's side effect. Platform rejections come back as *ActuatorError.
func (a *Action) Execute(ctx context.Context, act Actuator) error {
	spec, ok := a.Kind.spec()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, a.Kind)
	}
	if err := spec.execute(ctx, act, a.Target, a.actuatorReason()); err != nil {
		var ae *ActuatorError
		if errors.As(err, &ae) {
			return err
		}
		return &ActuatorError{Op: spec.tag, Target: a.Target.ID, Err: err}
	}
	return nil
}

// Notify sends the member a message about the action. Failures are dropped.
func (a *Action) Notify(ctx context.Context, n Notifier) {
	if n == nil {
		return
	}
	if err := n.DirectMessage(ctx, a.Target, a.UserMessage()); err != nil {
		logger.Debugf("Could not notify %s about %s: %v", a.Target, a.Kind, err)
	}
}

func (a *Action) reasonText() string {
	if a.Reason == "" {
		return models.GetTranslation(models.LangEnglish, "no_reason")
	}
	return html.EscapeString(a.Reason)
}

// UserMessage renders the direct message sent to the target (Telegram HTML).
func (a *Action) UserMessage() string {
	t := func(key string) string { return models.GetTranslation(models.LangEnglish, key) }

	var b strings.Builder
	fmt.Fprintf(&b, "<b>"+t("user_title")+"</b>\n", a.Kind.Emoji(), a.Kind.Title())
	fmt.Fprintf(&b, t("user_description")+"\n", a.Kind.PastTense())
	fmt.Fprintf(&b, "<b>%s:</b> %s", t("field_reason"), a.reasonText())
	if d, ok := a.Duration(); ok {
		fmt.Fprintf(&b, "\n<b>%s:</b> %s", t("field_duration"), FormatDuration(d, true))
		fmt.Fprintf(&b, "\n<b>%s:</b> %s", t("field_expires"), a.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

// LogMessage renders the moderation log entry (Telegram HTML).
func (a *Action) LogMessage() string {
	t := func(key string) string { return models.GetTranslation(models.LangEnglish, key) }

	var b strings.Builder
	fmt.Fprintf(&b, "<b>"+t("log_header")+"</b>\n", a.ID, a.Kind.Emoji(), a.Kind.Title(), html.EscapeString(a.Target.String()))
	fmt.Fprintf(&b, t("log_by")+"\n", html.EscapeString(a.Actor.String()))
	fmt.Fprintf(&b, "<b>%s:</b> %s", t("field_reason"), a.reasonText())
	if d, ok := a.Duration(); ok {
		fmt.Fprintf(&b, "\n%s • %s", t("field_duration"), FormatDuration(d, true))
		fmt.Fprintf(&b, "\n%s %s", t("field_expires"), a.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}
