package i18n

import "errors"

var (
	ErrNilAdapter            = errors.New("i18n: adapter is nil")
	ErrEmptyLanguageCode     = errors.New("i18n: empty language code")
	ErrFailedToParseYAML     = errors.New("i18n: failed to parse YAML content")
	ErrInvalidYAMLStructure  = errors.New("i18n: top-level YAML keys must map language codes to translation maps")
	ErrLoadingCancelled      = errors.New("i18n: loading translations cancelled")
	ErrFailedToReadDirectory = errors.New("i18n: failed to read translations directory")
	ErrFailedToReadFile      = errors.New("i18n: failed to read translation file")
	ErrNoTranslationFiles    = errors.New("i18n: no translation files found")
)
