package middleware

import (
	"net/http"
	"strings"
)

// CORS returns middleware that lets the cart widget call the API from the
// allowed origins with the session cookie attached.
//
// Origins listed explicitly get Access-Control-Allow-Credentials so browsers
// send and keep the cookie. A "*" entry, or an empty list, admits any origin
// without credentials; the literal "*" is never sent back.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := len(allowedOrigins) == 0
	listed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		listed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			credentials := origin != "" && listed[strings.ToLower(origin)]
			if origin != "" && (credentials || wildcard) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
				h.Set("Access-Control-Max-Age", "86400")
				if credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			// Preflights stop here, before a session cookie is minted.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
