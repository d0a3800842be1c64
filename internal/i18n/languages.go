package i18n

import "strings"

// languageNames lists the locales shipped in translations.yml.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
}

// GetLanguageName returns the English name of a shipped locale, or the code itself.
func GetLanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
