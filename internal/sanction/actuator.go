package sanction

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("target not found")
)

// Actuator performs sanctions against the platform.
type Actuator interface {
	Kick(ctx context.Context, target Identity, reason string) error
	Ban(ctx context.Context, target Identity, reason string) error
	// Unban must be a no-op for a target that is not banned.
	Unban(ctx context.Context, target Identity, reason string) error
	AddRole(ctx context.Context, target Identity, role string) error
	RemoveRole(ctx context.Context, target Identity, role string) error
}

// Notifier delivers direct messages to members. Callers treat it as best effort.
type Notifier interface {
	DirectMessage(ctx context.Context, target Identity, content string) error
}

// ActuatorError is returned when the platform rejects a sanction.
// Cause is ErrPermission, ErrNotFound or nil when unclassified.
type ActuatorError struct {
	Op     string
	Target int64
	Cause  error
	Err    error
}

func (e *ActuatorError) Error() string {
	switch {
	case e.Cause != nil && e.Err != nil:
		return fmt.Sprintf("%s %d: %v: %v", e.Op, e.Target, e.Cause, e.Err)
	case e.Cause != nil:
		return fmt.Sprintf("%s %d: %v", e.Op, e.Target, e.Cause)
	default:
		return fmt.Sprintf("%s %d: %v", e.Op, e.Target, e.Err)
	}
}

func (e *ActuatorError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
