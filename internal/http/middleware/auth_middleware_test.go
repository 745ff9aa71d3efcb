package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pedalacom/catalog-api/internal/security"
)

func TestAuthMiddleware(t *testing.T) {
	jwt := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	var seen *security.Claims
	h := AuthMiddleware(jwt)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := jwt.SignAccessToken("catalog-admin", nil, []string{"products:write"}, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	expired, err := jwt.SignAccessToken("catalog-admin", nil, nil, -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"valid", "bearer " + valid, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, rr.Code, rr.Body.String())
			}
			if tc.want == http.StatusNoContent && (seen == nil || seen.Subject != "catalog-admin") {
				t.Fatalf("expected claims in context, got %+v", seen)
			}
		})
	}
}
