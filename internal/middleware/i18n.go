package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"

	"nanobanana/internal/i18n"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

const localeCookie = "nb_lang"

// I18N resolves the UI language from, in order: the lang query parameter,
// the X-Locale header, the language cookie and Accept-Language. An explicit
// lang parameter is remembered in the cookie.
func I18N(defaultLocale string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := detectLocale(r, defaultLocale)
			if q := r.URL.Query().Get("lang"); q != "" {
				base, _ := tag.Base()
				http.SetCookie(w, &http.Cookie{Name: localeCookie, Value: base.String(), Path: "/", SameSite: http.SameSiteLaxMode})
			}
			ctx := context.WithValue(r.Context(), LocaleKey, tag)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) language.Tag {
	prefs := []string{r.URL.Query().Get("lang"), r.Header.Get("X-Locale")}
	if c, err := r.Cookie(localeCookie); err == nil {
		prefs = append(prefs, c.Value)
	}
	prefs = append(prefs, r.Header.Get("Accept-Language"))
	for _, p := range prefs {
		if p != "" {
			return i18n.Match(fallback, p)
		}
	}
	return i18n.Match(fallback)
}

// LocaleFromContext returns the language resolved for the request, English
// when none was set.
func LocaleFromContext(ctx context.Context) language.Tag {
	if v, ok := ctx.Value(LocaleKey).(language.Tag); ok {
		return v
	}
	return language.English
}
