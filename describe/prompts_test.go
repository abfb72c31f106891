package describe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptsCoverEveryLanguage(t *testing.T) {
	seen := map[string]Language{}
	for _, lang := range Languages() {
		prompt, err := DefaultPrompt(lang)
		require.NoError(t, err)
		assert.NotEmpty(t, prompt)
		if prev, dup := seen[prompt]; dup {
			t.Errorf("languages %s and %s share a prompt template", prev, lang)
		}
		seen[prompt] = lang
	}
}

func TestDefaultPromptUnknownLanguage(t *testing.T) {
	_, err := DefaultPrompt(Language("klingon"))

	assert.Error(t, err)
}

func TestParseLanguage(t *testing.T) {
	lang, err := ParseLanguage("hebrew")

	require.NoError(t, err)
	assert.Equal(t, LanguageHebrew, lang)
}

func TestParseLanguageIsCaseInsensitive(t *testing.T) {
	lang, err := ParseLanguage("English")

	require.NoError(t, err)
	assert.Equal(t, LanguageEnglish, lang)
}

func TestParseLanguageRejectsUnknown(t *testing.T) {
	_, err := ParseLanguage("klingon")

	assert.ErrorIs(t, err, ErrUnsupportedOption)
	assert.ErrorContains(t, err, "language")
	assert.ErrorContains(t, err, "klingon")
}
