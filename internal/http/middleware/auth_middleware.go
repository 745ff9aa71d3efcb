package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pedalacom/catalog-api/internal/http/response"
	"github.com/pedalacom/catalog-api/internal/observability"
	"github.com/pedalacom/catalog-api/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AccessTokenParser validates a raw bearer token.
type AccessTokenParser interface {
	ParseAccessToken(raw string) (*security.Claims, error)
}

func AuthMiddleware(parser AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing", "header")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			claims, err := parser.ParseAccessToken(raw)
			if err != nil {
				outcome := "invalid"
				if errors.Is(err, security.ErrExpiredToken) {
					outcome = "expired"
				}
				observability.RecordAccessTokenValidation(r.Context(), outcome, "header")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			observability.RecordAccessTokenValidation(r.Context(), "valid", "header")
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
