package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pedalacom/catalog-api/internal/health"
	"github.com/pedalacom/catalog-api/internal/http/handler"
	"github.com/pedalacom/catalog-api/internal/http/middleware"
	"github.com/pedalacom/catalog-api/internal/http/response"
	"github.com/pedalacom/catalog-api/internal/service"
)

type Dependencies struct {
	ProductHandler    *handler.ProductHandler
	CategoryHandler   *handler.CategoryHandler
	TokenParser       middleware.AccessTokenParser
	RBACService       service.RBACAuthorizer
	AuthEnabled       bool
	CORSOrigins       []string
	MaxBodyBytes      int64
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	maxBody := dep.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 2 << 20
	}
	r.Use(middleware.BodyLimit(maxBody))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	limiter := dep.GlobalRateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware()
	}
	guard := func(permission string) []func(http.Handler) http.Handler {
		if !dep.AuthEnabled {
			return nil
		}
		return []func(http.Handler) http.Handler{
			middleware.AuthMiddleware(dep.TokenParser),
			middleware.RequirePermission(dep.RBACService, permission),
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter)
		r.Get("/categories", dep.CategoryHandler.List)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", dep.ProductHandler.List)
			r.Get("/search", dep.ProductHandler.QuickSearch)
			r.Post("/search", dep.ProductHandler.Search)
			r.Get("/{id}", dep.ProductHandler.GetByID)
			r.Get("/{id}/thumbnail", dep.ProductHandler.Thumbnail)
			r.With(guard(service.PermissionProductsWrite)...).Post("/", dep.ProductHandler.Create)
			r.With(guard(service.PermissionProductsWrite)...).Put("/{id}", dep.ProductHandler.Replace)
			r.With(guard(service.PermissionProductsDelete)...).Delete("/{id}", dep.ProductHandler.Delete)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
