package describe

import (
	"fmt"
	"strings"
)

// Language selects the default prompt template and tags successful results.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHebrew  Language = "hebrew"
)

// Languages lists the supported languages. The first entry is the built-in
// default.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageHebrew}
}

// defaultPrompts holds the template used when no layer sets a prompt. Every
// supported language must have exactly one entry.
var defaultPrompts = map[Language]string{
	LanguageEnglish: "Describe this pet in detail. Include information about the type of animal, breed (if identifiable), colors, size, pose, and any distinctive features.",
	LanguageHebrew:  "תאר את חיית המחמד הזו בפירוט. כלול מידע על סוג החיה, גזע (אם ניתן לזיהוי), צבעים, גודל, תנוחה, וכל מאפיינים ייחודיים.",
}

// ParseLanguage validates a raw language value against the supported set.
// Matching is case-insensitive; the canonical form is lowercase.
func ParseLanguage(raw string) (Language, error) {
	lang := Language(strings.ToLower(raw))
	for _, known := range Languages() {
		if lang == known {
			return lang, nil
		}
	}
	return "", fmt.Errorf("%w: language %q, must be one of: %s", ErrUnsupportedOption, raw, languageList())
}

// DefaultPrompt returns the built-in prompt template for lang. A supported
// language without a template means the template table is out of sync with
// the language set, which is a defect in this package, not caller input.
func DefaultPrompt(lang Language) (string, error) {
	prompt, ok := defaultPrompts[lang]
	if !ok || prompt == "" {
		return "", fmt.Errorf("no default prompt template for language %q", lang)
	}
	return prompt, nil
}

func languageList() string {
	names := make([]string, 0, len(Languages()))
	for _, lang := range Languages() {
		names = append(names, string(lang))
	}
	return strings.Join(names, ", ")
}
