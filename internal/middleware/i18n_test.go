package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		setup    func(r *http.Request)
		fallback string
		want     language.Tag
	}{
		{
			name:   "query overrides everything",
			target: "/?lang=id",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "en")
				r.Header.Set("Accept-Language", "en-US")
			},
			want: language.Indonesian,
		},
		{
			name: "x-locale overrides accept-language",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "ID")
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: language.Indonesian,
		},
		{
			name: "cookie used before accept-language",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: localeCookie, Value: "id"})
				r.Header.Set("Accept-Language", "en-US")
			},
			want: language.Indonesian,
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id-ID,en;q=0.8")
			},
			want: language.Indonesian,
		},
		{
			name:     "configured fallback",
			fallback: "id",
			want:     language.Indonesian,
		},
		{
			name: "default to en",
			want: language.English,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := tc.target
			if target == "" {
				target = "/"
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := detectLocale(req, tc.fallback); got != tc.want {
				t.Fatalf("detectLocale() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestI18NRemembersExplicitLanguage(t *testing.T) {
	var seen language.Tag
	h := I18N("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LocaleFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?lang=id", nil))
	if seen != language.Indonesian {
		t.Fatalf("locale = %v", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != localeCookie || cookies[0].Value != "id" {
		t.Fatalf("cookies = %+v", cookies)
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != language.English {
		t.Fatalf("LocaleFromContext() default = %v", got)
	}
	ctx = context.WithValue(ctx, LocaleKey, language.Indonesian)
	if got := LocaleFromContext(ctx); got != language.Indonesian {
		t.Fatalf("LocaleFromContext() with value = %v", got)
	}
}
