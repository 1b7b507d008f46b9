// Package i18n negotiates the request language and translates user-facing
// messages. Message keys are the English texts; other locales register a
// translation per key in the catalog.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	English = "en"
	Chinese = "zh"

	// Default is used when nothing else selects a locale.
	Default = English
)

var (
	supported = []language.Tag{language.English, language.Chinese}
	matcher   = language.NewMatcher(supported)
	cat       = mustBuildCatalog()
)

// Supported lists the allowed locale codes.
func Supported() []string {
	return []string{English, Chinese}
}

// IsSupported reports whether locale is in the allow-list.
func IsSupported(locale string) bool {
	return locale == English || locale == Chinese
}

// Match picks the best supported locale for an Accept-Language header.
func Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(acceptLanguage))
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	return codeFor(supported[idx])
}

// Resolve applies the locale precedence: user preference, then the session,
// then the Accept-Language header.
func Resolve(userLocale, sessionLocale, acceptLanguage string) string {
	if IsSupported(userLocale) {
		return userLocale
	}
	if IsSupported(sessionLocale) {
		return sessionLocale
	}
	if strings.TrimSpace(acceptLanguage) != "" {
		return Match(acceptLanguage)
	}
	return Default
}

// Printer returns a message printer for locale, falling back to Default.
func Printer(locale string) *message.Printer {
	if !IsSupported(locale) {
		locale = Default
	}
	return message.NewPrinter(language.MustParse(locale), message.Catalog(cat))
}

// T translates key for locale.
func T(locale, key string, args ...any) string {
	return Printer(locale).Sprintf(key, args...)
}

func codeFor(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, zh := range zhMessages {
		if err := b.SetString(language.English, key, key); err != nil {
			panic(err)
		}
		if err := b.SetString(language.Chinese, key, zh); err != nil {
			panic(err)
		}
	}
	return b
}
