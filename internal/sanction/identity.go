package sanction

import (
	"fmt"

	"tg-sanctions/internal/models"
)

// Identity references a platform user. A placeholder carries only the id
// and is never hydrated into a full profile.
type Identity struct {
	ID       int64
	Name     string
	Username string
}

func Placeholder(id int64) Identity {
	return Identity{ID: id}
}

func (i Identity) IsPlaceholder() bool {
	return i.Name == "" && i.Username == ""
}

func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Username != "":
		return "@" + i.Username
	default:
		return models.GetTranslation(models.LangEnglish, "unknown_user")
	}
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (ID: %d)", i.DisplayName(), i.ID)
}
