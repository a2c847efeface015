package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"progenai/internal/domain"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

var matcher = language.NewMatcher(domain.LanguageTags())

// I18N stores the request language in the context. X-Locale wins over
// Accept-Language; anything outside the supported set resolves to fallback.
func I18N(fallback domain.Language) func(http.Handler) http.Handler {
	if !fallback.Valid() {
		fallback = domain.DefaultLanguage
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLocale(r, fallback)
			w.Header().Set("Content-Language", string(lang))
			ctx := context.WithValue(r.Context(), LocaleKey, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback domain.Language) domain.Language {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if lang, ok := match(v); ok {
			return lang
		}
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		if lang, ok := match(v); ok {
			return lang
		}
	}
	return fallback
}

// match resolves an Accept-Language style list against the supported
// languages. A match below High confidence counts as no match.
func match(header string) (domain.Language, bool) {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return "", false
	}
	_, idx, conf := matcher.Match(tags...)
	if conf < language.High {
		return "", false
	}
	return domain.Languages[idx], true
}

func LocaleFromContext(ctx context.Context) domain.Language {
	if v, ok := ctx.Value(LocaleKey).(domain.Language); ok {
		return v
	}
	return domain.DefaultLanguage
}

// ContextWithLocale is used by tests and non-HTTP callers.
func ContextWithLocale(ctx context.Context, lang domain.Language) context.Context {
	return context.WithValue(ctx, LocaleKey, lang)
}
