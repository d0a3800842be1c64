package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/modbot/resources"
)

const translationsPath = "i18n/translations.yml"

// English strings are the keys; translations.yml maps each key to its upper-case locale codes.
var state = struct {
	once         sync.Once
	translations map[string]map[string]string
}{}

func load() {
	state.translations = make(map[string]map[string]string)
	content, err := resources.FS.ReadFile(translationsPath)
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	if err := yaml.Unmarshal(content, &state.translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
	}
}

func Get(key, lang string) string {
	if lang == "" || strings.EqualFold(lang, "en") {
		return key
	}
	state.once.Do(load)
	if res, ok := state.translations[key][strings.ToUpper(lang)]; ok && res != "" {
		return res
	}
	log.Tracef(`no %s translation for key "%s"`, lang, key)
	return key
}

// GetLanguagesList returns the language codes with at least one translation, English included.
func GetLanguagesList() []string {
	state.once.Do(load)
	seen := map[string]bool{"en": true}
	list := []string{"en"}
	for _, byLang := range state.translations {
		for code := range byLang {
			code = strings.ToLower(code)
			if !seen[code] {
				seen[code] = true
				list = append(list, code)
			}
		}
	}
	return list
}
