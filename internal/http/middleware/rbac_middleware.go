package middleware

import (
	"net/http"

	"github.com/pedalacom/catalog-api/internal/http/response"
	"github.com/pedalacom/catalog-api/internal/observability"
	"github.com/pedalacom/catalog-api/internal/service"
)

func RequirePermission(rbac service.RBACAuthorizer, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				observability.RecordMiddlewareValidationEvent(r.Context(), "rbac", "missing_claims")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if !rbac.HasPermission(claims.Permissions, permission) {
				observability.RecordMiddlewareValidationEvent(r.Context(), "rbac", "forbidden")
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permission", map[string]string{"required": permission})
				return
			}
			observability.RecordMiddlewareValidationEvent(r.Context(), "rbac", "granted")
			next.ServeHTTP(w, r)
		})
	}
}
