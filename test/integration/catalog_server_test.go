package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pedalacom/catalog-api/internal/database"
	"github.com/pedalacom/catalog-api/internal/http/handler"
	"github.com/pedalacom/catalog-api/internal/http/router"
	"github.com/pedalacom/catalog-api/internal/repository"
	"github.com/pedalacom/catalog-api/internal/security"
	"github.com/pedalacom/catalog-api/internal/service"
)

const (
	testIssuer   = "catalog-api"
	testAudience = "catalog-api-clients"
	testSecret   = "abcdefghijklmnopqrstuvwxyz123456"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
		Timestamp string `json:"timestamp"`
	} `json:"meta"`
}

type catalogTestServerOptions struct {
	authEnabled bool
	rateLimit   int
	cache       service.SearchCacheStore
	thumbnails  service.ThumbnailStore
	skipSeed    bool
}

type catalogTestServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
	jwt     *security.JWTManager
}

func newCatalogTestServer(t *testing.T, opts catalogTestServerOptions) *catalogTestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(dsn)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !opts.skipSeed {
		if err := database.Seed(db); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cache := opts.cache
	if cache == nil {
		cache = service.NewInMemorySearchCacheStore()
	}
	svc := service.NewProductService(
		repository.NewProductRepository(db),
		repository.NewCategoryRepository(db),
		cache,
		time.Minute,
		opts.thumbnails,
		slog.Default(),
	)
	jwtMgr := security.NewJWTManager(testIssuer, testAudience, testSecret)
	rateLimit := opts.rateLimit
	if rateLimit <= 0 {
		rateLimit = 1000
	}

	r := router.NewRouter(router.Dependencies{
		ProductHandler:  handler.NewProductHandler(svc),
		CategoryHandler: handler.NewCategoryHandler(svc),
		TokenParser:     jwtMgr,
		RBACService:     service.NewRBACService(),
		AuthEnabled:     opts.authEnabled,
		CORSOrigins:     []string{"http://localhost:4200"},
		MaxBodyBytes:    2 << 20,
		APIRateLimitRPM: rateLimit,
		EnableOTelHTTP:  false,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &catalogTestServer{baseURL: srv.URL, client: client, db: db, jwt: jwtMgr}
}

func (s *catalogTestServer) token(t *testing.T, permissions ...string) string {
	t.Helper()
	tok, err := s.jwt.SignAccessToken("catalog-editor", []string{"editor"}, permissions, time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, apiEnvelope) {
	t.Helper()
	resp, raw := doRawText(t, client, method, url, body, headers)
	var env apiEnvelope
	if len(raw) > 0 {
		_ = json.Unmarshal([]byte(raw), &env)
	}
	return resp, env
}

func doRawText(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var payload []byte
	var err error
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.String()
}

func decodeData(t *testing.T, env apiEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode envelope data: %v (%s)", err, env.Data)
	}
}
