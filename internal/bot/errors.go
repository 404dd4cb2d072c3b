package bot

import (
	"errors"
	"strings"

	"github.com/mymmrac/telego/telegoapi"

	"tg-sanctions/internal/sanction"
)

var (
	permissionHints = []string{
		"not enough rights",
		"chat_admin_required",
		"can't remove chat owner",
		"user is an administrator",
		"can't restrict self",
		"have no rights",
	}
	notFoundHints = []string{
		"user not found",
		"participant_id_invalid",
		"member not found",
		"user_id_invalid",
		"chat not found",
	}
)

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// classify maps a Telegram API failure onto sanction.ErrPermission or
// sanction.ErrNotFound. It returns nil when the failure fits neither.
func classify(err error) error {
	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return nil
	}
	desc := strings.ToLower(apiErr.Description)
	switch {
	case apiErr.ErrorCode == 403, containsAny(desc, permissionHints):
		return sanction.ErrPermission
	case containsAny(desc, notFoundHints):
		return sanction.ErrNotFound
	}
	return nil
}

func actuatorError(op string, target int64, err error) error {
	if err == nil {
		return nil
	}
	return &sanction.ActuatorError{Op: op, Target: target, Cause: classify(err), Err: err}
}
