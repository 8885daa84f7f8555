// Package i18n serves the bot phrases from the embedded locale files.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// DefaultLanguage is used for unknown codes and missing phrases.
const DefaultLanguage = "en"

// supported lists the locale files in matching priority; the first one is the default.
var supported = []language.Tag{language.English, language.Ukrainian}

var matcher = language.NewMatcher(supported)

// Localizer handles translation for different languages.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer creates a new Localizer instance and loads all translations.
func NewLocalizer() (*Localizer, error) {
	locale := &Localizer{
		translations: make(map[string]map[string]string, len(supported)),
	}

	for _, tag := range supported {
		lang := code(tag)
		if err := locale.loadLanguage(lang); err != nil {
			return nil, fmt.Errorf("failed to load language %s: %w", lang, err)
		}
	}

	return locale, nil
}

func (l *Localizer) loadLanguage(lang string) error {
	filename := fmt.Sprintf("locales/%s.json", lang)
	data, err := localesFS.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read locale file %s: %w", filename, err)
	}

	var translations map[string]string
	if err = json.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to unmarshal locale file %s: %w", filename, err)
	}

	l.mu.Lock()
	l.translations[lang] = translations
	l.mu.Unlock()

	return nil
}

func (l *Localizer) lookup(lang, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	phrase, ok := l.translations[lang][key]
	return phrase, ok
}

// Get returns the phrase for key in lang, falling back to English and then to the key itself.
func (l *Localizer) Get(lang, key string) string {
	if phrase, ok := l.lookup(lang, key); ok {
		return phrase
	}
	if lang != DefaultLanguage {
		if phrase, ok := l.lookup(DefaultLanguage, key); ok {
			return phrase
		}
	}
	return key
}

// GetWithData returns the phrase with {name} placeholders replaced.
// Example: GetWithData("en", "login.success", map[string]interface{}{"name": "John"}).
func (l *Localizer) GetWithData(lang, key string, data map[string]interface{}) string {
	phrase := l.Get(lang, key)
	for k, v := range data {
		phrase = strings.ReplaceAll(phrase, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return phrase
}

// Tag returns the collation tag of a supported language code.
func Tag(lang string) language.Tag {
	for _, tag := range supported {
		if code(tag) == lang {
			return tag
		}
	}
	return supported[0]
}

// NormalizeLanguageCode maps a Telegram language code such as "en-US" to a supported code.
func NormalizeLanguageCode(telegramLang string) string {
	telegramLang = strings.TrimSpace(telegramLang)
	if telegramLang == "" {
		return DefaultLanguage
	}
	// Some clients report the country code for Ukrainian.
	if strings.EqualFold(telegramLang, "ua") {
		return code(language.Ukrainian)
	}

	tag, _, confidence := matcher.Match(language.Make(telegramLang))
	if confidence == language.No {
		return DefaultLanguage
	}
	return code(tag)
}

func code(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
