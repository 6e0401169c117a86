// Package i18n provides a small translator with nested keys, named
// placeholders and plural forms, loaded from YAML files (typically embedded).
//
//	//go:embed translations
//	var files embed.FS
//
//	tr, err := i18n.NewTranslator(ctx,
//		i18n.NewFSAdapter(i18n.NewYAMLParser(), files, "translations"),
//		i18n.WithDefaultLanguage("es"),
//	)
//	msg := tr.N(tr.Match("es-MX"), "inbox.new_since_visit", 3)
//
// Language matching uses golang.org/x/text/language, so regional variants
// and Accept-Language headers resolve to the closest loaded language.
package i18n
