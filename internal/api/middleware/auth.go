package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/logging"
)

type contextKey string

// UserClaimsKey holds the *auth.Claims of an authenticated request
const UserClaimsKey contextKey = "user_claims"

// writeError sends {"error": msg} as JSON
func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// AuthMiddleware accepts only requests carrying a valid "Bearer <jwt>" header and
// stores the token claims in the request context.
func AuthMiddleware(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	log := logging.WithComponent("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string, err error) {
				entry := log.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"remote": r.RemoteAddr,
				})
				if err != nil {
					entry = entry.WithError(err)
				}
				entry.Warn("request rejected: " + reason)
				writeError(w, reason, http.StatusUnauthorized)
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				reject("missing authorization header", nil)
				return
			}
			scheme, token, found := strings.Cut(header, " ")
			if !found || scheme != "Bearer" || token == "" {
				reject("invalid authorization format", nil)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				reject("invalid token", err)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through authenticated users holding one of roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil {
				writeError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			logging.WithComponent("auth").WithFields(logrus.Fields{
				"user": claims.Username,
				"role": claims.Role,
				"path": r.URL.Path,
			}).Warn("forbidden")
			writeError(w, "forbidden", http.StatusForbidden)
		})
	}
}

func GetClaims(r *http.Request) *auth.Claims {
	claims, ok := r.Context().Value(UserClaimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
