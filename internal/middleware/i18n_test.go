package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"progenai/internal/domain"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback domain.Language
		want     domain.Language
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ta-IN")
				r.Header.Set("Accept-Language", "hi")
			},
			fallback: domain.LanguageEnglish,
			want:     domain.LanguageTamil,
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "te-IN,en;q=0.5")
			},
			fallback: domain.LanguageEnglish,
			want:     domain.LanguageTelugu,
		},
		{
			name: "accept-language quality order",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en;q=0.2,hi;q=0.9")
			},
			fallback: domain.LanguageEnglish,
			want:     domain.LanguageHindi,
		},
		{
			name: "unsupported x-locale falls through",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "id")
				r.Header.Set("Accept-Language", "hi-IN")
			},
			fallback: domain.LanguageEnglish,
			want:     domain.LanguageHindi,
		},
		{
			name: "unsupported language uses fallback",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "fr-FR")
			},
			fallback: domain.LanguageTelugu,
			want:     domain.LanguageTelugu,
		},
		{
			name:     "default",
			fallback: domain.LanguageEnglish,
			want:     domain.LanguageEnglish,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := detectLocale(req, tc.fallback); got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestI18NStoresLocale(t *testing.T) {
	var got domain.Language
	h := I18N("xx")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "hi")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got != domain.LanguageHindi || rr.Header().Get("Content-Language") != "hi" {
		t.Fatalf("locale = %q, header = %q", got, rr.Header().Get("Content-Language"))
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != domain.LanguageEnglish {
		t.Fatalf("LocaleFromContext() default = %q", got)
	}
	ctx = ContextWithLocale(ctx, domain.LanguageTamil)
	if got := LocaleFromContext(ctx); got != domain.LanguageTamil {
		t.Fatalf("LocaleFromContext() with value = %q", got)
	}
}
