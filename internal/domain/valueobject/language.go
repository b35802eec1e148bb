package valueobject

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Language represents a source language funcscan can analyze, together with
// the tree-sitter grammar used to parse it.
type Language struct {
	name       string
	grammar    string
	aliases    []string
	extensions []string
}

// Supported language names.
const (
	LanguageTypeScript = "TypeScript"
	LanguageTSX        = "TSX"
	LanguageJavaScript = "JavaScript"
)

// ErrUnsupportedLanguage is returned when a name or file extension maps to no
// supported language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// SupportedLanguages returns every language funcscan can analyze.
func SupportedLanguages() []Language {
	return []Language{
		{
			name:       LanguageTypeScript,
			grammar:    "typescript",
			aliases:    []string{"ts", "typescript"},
			extensions: []string{".ts", ".mts", ".cts"},
		},
		{
			name:       LanguageTSX,
			grammar:    "tsx",
			aliases:    []string{"tsx"},
			extensions: []string{".tsx"},
		},
		{
			name:       LanguageJavaScript,
			grammar:    "javascript",
			aliases:    []string{"js", "javascript", "jsx"},
			extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		},
	}
}

// NewLanguage resolves a language by name or alias, case-insensitively.
func NewLanguage(name string) (Language, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return Language{}, errors.New("language name cannot be empty")
	}

	for _, lang := range SupportedLanguages() {
		if lang.HasAlias(normalized) {
			return lang, nil
		}
	}

	return Language{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, name)
}

// LanguageFromPath resolves a language from a file path's extension.
func LanguageFromPath(path string) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return Language{}, fmt.Errorf("%w: %s has no extension", ErrUnsupportedLanguage, path)
	}

	for _, lang := range SupportedLanguages() {
		if lang.HasExtension(ext) {
			return lang, nil
		}
	}

	return Language{}, fmt.Errorf("%w: extension %s", ErrUnsupportedLanguage, ext)
}

// Name returns the language name.
func (l Language) Name() string {
	return l.name
}

// Grammar returns the tree-sitter grammar name for this language.
func (l Language) Grammar() string {
	return l.grammar
}

// Aliases returns the language aliases.
func (l Language) Aliases() []string {
	aliases := make([]string, len(l.aliases))
	copy(aliases, l.aliases)
	return aliases
}

// Extensions returns the file extensions for this language.
func (l Language) Extensions() []string {
	extensions := make([]string, len(l.extensions))
	copy(extensions, l.extensions)
	return extensions
}

// IsZero reports whether l is the zero Language.
func (l Language) IsZero() bool {
	return l.name == ""
}

// HasExtension returns true if the language supports the given extension.
func (l Language) HasExtension(extension string) bool {
	normalized := strings.ToLower(strings.TrimSpace(extension))
	if !strings.HasPrefix(normalized, ".") {
		normalized = "." + normalized
	}

	for _, ext := range l.extensions {
		if ext == normalized {
			return true
		}
	}
	return false
}

// HasAlias returns true if the language has the given name or alias.
func (l Language) HasAlias(alias string) bool {
	normalized := strings.ToLower(strings.TrimSpace(alias))

	if strings.ToLower(l.name) == normalized {
		return true
	}

	for _, a := range l.aliases {
		if a == normalized {
			return true
		}
	}
	return false
}

// String returns a string representation of the language.
func (l Language) String() string {
	return l.name
}

// Equal compares two Language instances for equality.
func (l Language) Equal(other Language) bool {
	return strings.EqualFold(l.name, other.name)
}
