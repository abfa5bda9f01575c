// Package localization provides the translation strings used in
// outbound notifications. Bundles are embedded JSON files named by
// language code (e.g. "en.json").
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed locales/*.json
var localeFS embed.FS

const fallbackLang = "en"

// Localizer holds the loaded translation bundles.
type Localizer struct {
	translations map[string]map[string]string
}

// NewLocalizer loads all embedded translation bundles.
func NewLocalizer() (*Localizer, error) {
	l := &Localizer{translations: make(map[string]map[string]string)}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".json")

		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", entry.Name(), err)
		}
		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", entry.Name(), err)
		}
		l.translations[lang] = translations
	}
	return l, nil
}

// GetString returns the localized string for the key, falling back to
// English and finally to the key itself.
func (l *Localizer) GetString(lang, key string) string {
	if m, ok := l.translations[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := l.translations[fallbackLang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}
