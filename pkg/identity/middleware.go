package identity

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// TokenParser extracts a user id from a bearer token.
type TokenParser interface {
	Parse(token string) (string, error)
}

// Middleware authenticates requests carrying a bearer token and stores the
// subject in the request context. Requests without a token pass through
// anonymously; requests with an invalid token get 401.
//
// The token is read from the Authorization header, or from the access_token
// query parameter for clients such as EventSource that cannot set headers.
func Middleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := parser.Parse(token)
			if err != nil {
				log.LogAttrs(r.Context(), slog.LevelDebug, "rejecting request token", logger.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
