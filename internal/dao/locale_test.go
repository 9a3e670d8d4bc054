package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestLocalize(t *testing.T) {
	text := LocalizedText{"en_US": "Review", "fr_CA": "Évaluation"}

	assert.Equal(t, "Évaluation", text.Localize([]language.Tag{language.MustParse("fr-CA")}, "en_US"))
	assert.Equal(t, "Review", text.Localize([]language.Tag{language.MustParse("en-US")}, "fr_CA"))
	assert.Equal(t, "Review", text.Localize(nil, "en_US"))
	assert.Equal(t, "Évaluation", text.Localize(nil, "fr_CA"))
	// no usable preference falls back to the primary locale
	assert.Equal(t, "Évaluation", text.Localize([]language.Tag{language.Japanese}, "fr_CA"))
	// unknown fallback picks the first locale in sorted order
	assert.Equal(t, "Review", text.Localize(nil, "de_DE"))
	assert.Equal(t, "", LocalizedText(nil).Localize(nil, "en_US"))
}

func TestLocalizedTextAccessors(t *testing.T) {
	var text LocalizedText
	assert.Equal(t, "", text.Get("en_US"))

	text.Set("en_US", "Title")
	text.Set("", "raw")
	assert.Equal(t, "Title", text.Get("en_US"))
	assert.Equal(t, []string{"", "en_US"}, text.Locales())

	clone := text.Clone()
	clone.Set("en_US", "Changed")
	assert.Equal(t, "Title", text.Get("en_US"))
}

func TestValidateLocale(t *testing.T) {
	assert.NoError(t, ValidateLocale(""))
	assert.NoError(t, ValidateLocale("en_US"))
	assert.NoError(t, ValidateLocale("pt-BR"))
	assert.ErrorIs(t, ValidateLocale("not a locale"), ErrInvalidLocale)
}
