package models

// Language constants
const (
	LangEnglish = "en"
)

// Translation is a map of message keys to translated text
type Translation map[string]string

// Translations stores the texts used in member notifications and the moderation log
var Translations = map[string]Translation{
	LangEnglish: {
		"user_title":       "%s %s",
		"user_description": "You have been %s.",
		"field_reason":     "Reason",
		"field_duration":   "Duration",
		"field_expires":    "Expires",
		"no_reason":        "No reason provided",
		"done_by":          "Action done by %s",
		"log_header":       "#%d %s %s %s",
		"log_by":           "by %s",
		"unknown_user":     "Unknown User",
	},
}

// GetTranslation returns the correct translation for a given language code and key
func GetTranslation(lang, key string) string {
	if _, ok := Translations[lang]; !ok {
		lang = LangEnglish
	}

	if translation, ok := Translations[lang][key]; ok {
		return translation
	}

	// Fall back to English if key not found in specified language
	if translation, ok := Translations[LangEnglish][key]; ok {
		return translation
	}

	return key
}
