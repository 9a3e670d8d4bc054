package dao

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"
)

// LocalizedText maps a locale code (e.g. "en_US", "fr-CA") to a value.
type LocalizedText map[string]string

// Get returns the value for locale, or "" when absent.
func (t LocalizedText) Get(locale string) string {
	if t == nil {
		return ""
	}
	return t[locale]
}

// Set stores value for locale, allocating the map if needed.
func (t *LocalizedText) Set(locale, value string) {
	if *t == nil {
		*t = LocalizedText{}
	}
	(*t)[locale] = value
}

// Locales returns the locale keys in sorted order.
func (t LocalizedText) Locales() []string {
	out := make([]string, 0, len(t))
	for l := range t {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone returns a shallow copy.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Localize picks the value best matching the preferred tags. When nothing
// matches it falls back to the fallback locale, then to any value.
func (t LocalizedText) Localize(prefs []language.Tag, fallback string) string {
	if len(t) == 0 {
		return ""
	}
	keys := t.Locales()
	if fallback != "" {
		if _, ok := t[fallback]; ok {
			// put the fallback first so the matcher defaults to it
			ordered := []string{fallback}
			for _, k := range keys {
				if k != fallback {
					ordered = append(ordered, k)
				}
			}
			keys = ordered
		}
	}
	tags := make([]language.Tag, 0, len(keys))
	usable := make([]string, 0, len(keys))
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		usable = append(usable, k)
	}
	if len(tags) == 0 || len(prefs) == 0 {
		if v, ok := t[fallback]; ok {
			return v
		}
		return t[keys[0]]
	}
	_, idx, _ := language.NewMatcher(tags).Match(prefs...)
	return t[usable[idx]]
}

// ValidateLocale checks that locale parses as a language tag. The empty
// locale is accepted and marks an unlocalized setting.
func ValidateLocale(locale string) error {
	if locale == "" {
		return nil
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidLocale, locale, err)
	}
	return nil
}
