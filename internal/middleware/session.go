package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type sessionKey struct{}

// Session attaches a workflow session ID to every request, issuing an
// HttpOnly cookie on first contact. Malformed cookie values are replaced.
func Session(cookieName string, ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextWithSessionID is used by tests and background jobs that act on a
// known session.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}
