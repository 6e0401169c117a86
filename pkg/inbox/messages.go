package inbox

import (
	"context"
	"embed"
	"sync"

	"github.com/dmitrymomot/notifsync/pkg/i18n"
)

// DefaultLanguage is the language of user-facing strings unless configured.
const DefaultLanguage = "es"

const (
	keyNewSinceVisit = "inbox.new_since_visit"
	keyToastTitle    = "inbox.toast_title"
)

//go:embed translations/*.yaml
var translations embed.FS

var builtinTranslator = sync.OnceValues(func() (*i18n.Translator, error) {
	adapter := i18n.NewFSAdapter(i18n.NewYAMLParser(), translations, "translations")
	return i18n.NewTranslator(context.Background(), adapter, i18n.WithDefaultLanguage(DefaultLanguage))
})

// Translator returns the translator for the built-in inbox strings.
func Translator() (*i18n.Translator, error) {
	return builtinTranslator()
}

// newSinceVisitMessage renders the new-since-last-visit line. Zero renders
// as an empty string in every language.
func newSinceVisitMessage(t *i18n.Translator, lang string, n int) string {
	if n <= 0 || t == nil {
		return ""
	}
	return t.N(lang, keyNewSinceVisit, n)
}
