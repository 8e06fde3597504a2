package station

import (
	"sort"
	"strings"
)

// accentCatalog lists the voice locales offered per language; the first is
// the language's default.
var accentCatalog = map[string][]string{
	"en": {"en-US", "en-GB", "en-IN", "en-AU", "en-CA", "en-NZ"},
	"es": {"es-ES", "es-MX", "es-US", "es-AR", "es-CO"},
	"fr": {"fr-FR", "fr-CA", "fr-BE", "fr-CH"},
	"de": {"de-DE", "de-AT", "de-CH"},
	"it": {"it-IT", "it-CH"},
	"pt": {"pt-PT", "pt-BR"},
	"ar": {"ar-SA", "ar-EG", "ar-AE"},
	"ru": {"ru-RU"},
	"ja": {"ja-JP"},
	"ko": {"ko-KR"},
	"zh": {"zh-CN", "zh-TW"},
	"hi": {"hi-IN"},
	"te": {"te-IN"},
	"ta": {"ta-IN"},
	"kn": {"kn-IN"},
	"ml": {"ml-IN"},
	"bn": {"bn-IN"},
	"gu": {"gu-IN"},
	"mr": {"mr-IN"},
	"nl": {"nl-NL", "nl-BE"},
	"tr": {"tr-TR"},
	"pl": {"pl-PL"},
	"sv": {"sv-SE"},
	"da": {"da-DK"},
	"fi": {"fi-FI"},
	"no": {"nb-NO"},
}

// Languages returns the catalog's language codes, sorted.
func Languages() []string {
	out := make([]string, 0, len(accentCatalog))
	for lang := range accentCatalog {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Accents returns the locales available for a language.
func Accents(lang string) []string {
	return accentCatalog[lang]
}

// DefaultAccent returns the default locale for a language, or the language
// code itself for languages outside the catalog.
func DefaultAccent(lang string) string {
	if accents, ok := accentCatalog[lang]; ok {
		return accents[0]
	}
	return lang
}

// ValidAccent reports whether the locale appears in the catalog.
func ValidAccent(accent string) bool {
	lang := AccentLanguage(accent)
	for _, a := range accentCatalog[lang] {
		if a == accent {
			return true
		}
	}
	return false
}

// AccentLanguage extracts the language code from a locale tag
// ("en-GB" → "en"). The "no"/"nb" split is folded to the catalog key.
func AccentLanguage(accent string) string {
	lang, _, _ := strings.Cut(accent, "-")
	if lang == "nb" {
		return "no"
	}
	return lang
}
