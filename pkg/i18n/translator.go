package i18n

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when no other language can be matched.
const DefaultLanguage = "en"

// Translator looks up translated strings by language and dot-separated key.
// It is immutable after construction and safe for concurrent use.
type Translator struct {
	translations  map[string]map[string]any
	langs         []string
	matcher       language.Matcher
	matchable     []string // parallel to the matcher's tag list
	defaultLang   string
	fallbackToKey bool
	logger        *slog.Logger
}

// NewTranslator loads translations from adapter.
func NewTranslator(ctx context.Context, adapter TranslationAdapter, opts ...Option) (*Translator, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	t := &Translator{
		defaultLang:   DefaultLanguage,
		fallbackToKey: true,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	translations, err := adapter.Load(ctx)
	if err != nil {
		return nil, err
	}
	for lang := range translations {
		if lang == "" {
			return nil, ErrEmptyLanguageCode
		}
		t.langs = append(t.langs, lang)
	}
	slices.Sort(t.langs)

	// the default language goes first so the matcher falls back to it
	t.matchable = []string{t.defaultLang}
	tags := []language.Tag{language.Make(t.defaultLang)}
	for _, lang := range t.langs {
		if lang != t.defaultLang {
			t.matchable = append(t.matchable, lang)
			tags = append(tags, language.Make(lang))
		}
	}

	t.translations = translations
	t.matcher = language.NewMatcher(tags)
	return t, nil
}

// SupportedLanguages returns the loaded language codes, sorted.
func (t *Translator) SupportedLanguages() []string {
	return slices.Clone(t.langs)
}

// Match returns the supported language closest to the given BCP 47 tag,
// e.g. "es-MX" → "es". Unknown or malformed input yields the default.
func (t *Translator) Match(lang string) string {
	if _, ok := t.translations[lang]; ok {
		return lang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return t.defaultLang
	}
	return t.resolve(tag)
}

// MatchAcceptLanguage picks the best supported language for an
// Accept-Language header value.
func (t *Translator) MatchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return t.defaultLang
	}
	return t.resolve(tags...)
}

func (t *Translator) resolve(tags ...language.Tag) string {
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(t.matchable) {
		return t.defaultLang
	}
	return t.matchable[idx]
}

// T translates key, substituting %{name} placeholders from args given as
// name, value pairs.
func (t *Translator) T(lang, key string, args ...string) string {
	if s, ok := t.lookup(lang, key); ok {
		return substitute(s, args)
	}
	return t.missing(lang, key, args)
}

// N translates a plural key. The form is chosen from n: "zero" (falling back
// to "other") for 0, "one" for 1, "other" otherwise. %{count} is filled with
// n unless args provide it.
func (t *Translator) N(lang, key string, n int, args ...string) string {
	var forms []string
	switch n {
	case 0:
		forms = []string{"zero", "other"}
	case 1:
		forms = []string{"one"}
	default:
		forms = []string{"other"}
	}

	if !hasParam(args, "count") {
		args = append(slices.Clone(args), "count", strconv.Itoa(n))
	}

	for _, form := range forms {
		if s, ok := t.lookup(lang, key+"."+form); ok {
			return substitute(s, args)
		}
	}
	if s, ok := t.lookup(lang, key); ok {
		return substitute(s, args)
	}
	return t.missing(lang, key, args)
}

func (t *Translator) lookup(lang, key string) (string, bool) {
	tr, ok := t.translations[lang]
	if !ok {
		return "", false
	}

	var cur any = tr
	for part := range strings.SplitSeq(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[part]; !ok {
			return "", false
		}
	}

	s, ok := cur.(string)
	return s, ok
}

func (t *Translator) missing(lang, key string, args []string) string {
	t.logger.Debug("translation not found", slog.String("lang", lang), slog.String("key", key))
	if t.fallbackToKey {
		return substitute(key, args)
	}
	return ""
}

var paramRegex = regexp.MustCompile(`%\{([^}]+)\}`)

func substitute(tmpl string, args []string) string {
	if len(args) < 2 || !strings.Contains(tmpl, "%{") {
		return tmpl
	}
	return paramRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-1]
		for i := 0; i+1 < len(args); i += 2 {
			if args[i] == name {
				return args[i+1]
			}
		}
		return match
	})
}

func hasParam(args []string, name string) bool {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == name {
			return true
		}
	}
	return false
}
