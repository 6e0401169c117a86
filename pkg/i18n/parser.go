package i18n

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser turns file content into translations keyed by language code.
type Parser interface {
	Parse(ctx context.Context, content []byte) (map[string]map[string]any, error)
	SupportsFileExtension(ext string) bool
}

// YAMLParser parses documents of the form:
//
//	es:
//	  inbox:
//	    new_since_visit:
//	      one: "%{count} nueva desde tu última visita"
type YAMLParser struct{}

// NewYAMLParser creates a parser for .yaml and .yml translation files.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Parse decodes one translation file keyed by language.
func (p *YAMLParser) Parse(ctx context.Context, content []byte) (map[string]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrLoadingCancelled, err)
	}

	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, errors.Join(ErrFailedToParseYAML, err)
	}

	result := make(map[string]map[string]any, len(data))
	for lang, val := range data {
		m, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T", ErrInvalidYAMLStructure, lang, val)
		}
		result[lang] = m
	}
	return result, nil
}

// SupportsFileExtension reports whether ext is .yaml or .yml.
func (p *YAMLParser) SupportsFileExtension(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	return strings.EqualFold(ext, "yaml") || strings.EqualFold(ext, "yml")
}
