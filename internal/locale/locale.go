// Package locale works out which locales a request prefers.
package locale

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LangParam is the query parameter that overrides Accept-Language.
const LangParam = "lang"

// Preferences returns the request's preferred language tags, most preferred
// first: the lang query parameter, then Accept-Language.
func Preferences(r *http.Request) []language.Tag {
	var tags []language.Tag
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, err := language.Parse(v); err == nil {
			tags = append(tags, tag)
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if parsed, _, err := language.ParseAcceptLanguage(accept); err == nil {
			tags = append(tags, parsed...)
		}
	}
	return tags
}
