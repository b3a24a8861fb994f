package middleware

import (
	"context"
	"net/http"
	"strings"

	"prochain-bridge/pkg/jwt"
	"prochain-bridge/pkg/response"
)

type contextKey string

const ClientIDKey contextKey = "clientID"

// AuthMiddleware admits UI clients holding a bridge token. The token is read
// from the Authorization header, or from the "token" query parameter for
// WebSocket upgrades where browsers cannot set headers.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing or malformed bridge token")
				return
			}

			claims, err := jwt.ValidateToken(token, secret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired bridge token")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, claims.ClientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

func GetClientID(r *http.Request) string {
	clientID, ok := r.Context().Value(ClientIDKey).(string)
	if !ok {
		return ""
	}
	return clientID
}
