package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type sessionKey struct{}

type newSessionKey struct{}

// Session returns middleware that identifies the visitor by a cookie holding
// a UUID. A missing or malformed cookie is replaced by a fresh one, and the
// request is marked so later middleware can tell it carries no history.
func Session(cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := ""
			if c, err := r.Cookie(cookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
				ctx = context.WithValue(ctx, newSessionKey{}, true)
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, id)))
		})
	}
}

// WithSessionID returns a copy of ctx carrying the session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id stored by Session, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// IsNewSession reports whether Session minted the id on this request.
func IsNewSession(ctx context.Context) bool {
	fresh, _ := ctx.Value(newSessionKey{}).(bool)
	return fresh
}
