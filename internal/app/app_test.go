package app_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gowatch/config"
	"gowatch/internal/app"
	"gowatch/internal/domain"
	"gowatch/internal/pkg/cache"
	"gowatch/internal/pkg/database"
	"gowatch/internal/pkg/database/dbtest"
	"gowatch/internal/pkg/logger"
	"gowatch/internal/pkg/metrics"
	"gowatch/internal/pkg/password"
	"gowatch/internal/pkg/ratelimit"
)

type env struct {
	app   *app.App
	store *cache.MemoryClient
	db    *database.DB
}

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL:  "sqlite::memory:",
		DBTimeout:    5 * time.Second,
		CacheTimeout: time.Second,
		CacheTTL:     30 * time.Second,
		JWTSecretKey: "segredo-e2e",
		JWTAlgorithm: "HS256",
		TokenExpiry:  30 * time.Minute,
		RateLimits:   ratelimit.DefaultPolicies(),
	}
}

func newEnv(t *testing.T, cfg *config.Config) *env {
	t.Helper()
	db := dbtest.New(t)
	store := cache.NewMemoryClient()
	reg := prometheus.NewRegistry()
	a, err := app.Build(app.Deps{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Logger:   logger.NewLoggerWithOutput("error", io.Discard),
		Metrics:  metrics.NewCollector(reg),
		Gatherer: reg,
		Hasher:   password.NewHasher(password.NewBcrypt(bcrypt.MinCost), password.NewPBKDF2SHA256(1000)),
	})
	require.NoError(t, err)
	return &env{app: a, store: store, db: db}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.app.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	return login["access_token"].(string)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func listTitles(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page domain.WatchlistPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	titles := []string{}
	for _, it := range page.Watchlist {
		titles = append(titles, it.Title)
	}
	return titles
}

// TestRegisterLoginMe cobre registro, login e consulta do próprio usuário.
func TestRegisterLoginMe(t *testing.T) {
	e := newEnv(t, testConfig())

	rec := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "U@Test.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "email": "u@test.com", "role": "user"}, decode(t, rec))

	rec = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "u@test.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode(t, rec)
	assert.Equal(t, "bearer", login["token_type"])
	assert.Equal(t, float64(1800), login["expires_in"])
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))

	rec = e.do(t, http.MethodGet, "/v1/auth/me", login["access_token"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "u@test.com", me["email"])
	assert.Equal(t, "user", me["role"])

	// duplicado
	rec = e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "u@test.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newEnv(t, testConfig())
	e.registerAndLogin(t, "u@test.com")

	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "u@test.com", "password": "errada123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.NotEmpty(t, body["request_id"])
}

// TestWatchlistFilterAndDeleteInvalidation adiciona, filtra e remove um item,
// provando que a remoção invalida o cache antes do TTL.
func TestWatchlistFilterAndDeleteInvalidation(t *testing.T) {
	e := newEnv(t, testConfig())
	tok := e.registerAndLogin(t, "u@test.com")

	rec := e.do(t, http.MethodPost, "/v1/watchlists/items", tok, map[string]string{"title": "Dune", "type": "movie"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode(t, rec)["item"].(map[string]interface{})
	id := item["id"].(string)

	assert.Equal(t, []string{"Dune"}, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/?type=movie", tok, nil)))
	assert.Empty(t, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/?type=show", tok, nil)))
	// leitura repetida vem do cache
	assert.Equal(t, []string{"Dune"}, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/?type=movie", tok, nil)))

	rec = e.do(t, http.MethodDelete, "/v1/watchlists/items/"+id, tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/?type=movie", tok, nil)))
	assert.Empty(t, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/", tok, nil)))
}

func TestWatchlist_UpdateAndOwnership(t *testing.T) {
	e := newEnv(t, testConfig())
	alice := e.registerAndLogin(t, "alice@test.com")
	bob := e.registerAndLogin(t, "bob@test.com")

	rec := e.do(t, http.MethodPost, "/v1/watchlists/items", alice, map[string]string{"title": "Alien"})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decode(t, rec)["item"].(map[string]interface{})
	assert.Equal(t, "movie", item["type"])
	id := item["id"].(string)

	rec = e.do(t, http.MethodPatch, "/v1/watchlists/items/"+id, bob, map[string]string{"title": "Roubado"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, http.MethodDelete, "/v1/watchlists/items/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPatch, "/v1/watchlists/items/"+id, alice, map[string]string{"type": "show"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "show", decode(t, rec)["item"].(map[string]interface{})["type"])

	assert.Equal(t, []string{"Alien"}, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/?type=show", alice, nil)))
	assert.Empty(t, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/", bob, nil)))
}

func TestWatchlist_InvalidQuery(t *testing.T) {
	e := newEnv(t, testConfig())
	tok := e.registerAndLogin(t, "u@test.com")

	for _, q := range []string{"?type=book", "?sort=title", "?limit=abc"} {
		rec := e.do(t, http.MethodGet, "/v1/watchlists/"+q, tok, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec := e.do(t, http.MethodGet, "/v1/watchlists/?skip=-3&limit=1000", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.Equal(t, float64(0), page["skip"])
	assert.Equal(t, float64(100), page["limit"])
}

// TestProtectedRouteWithoutToken: 401 sem tocar no banco nem no cache.
// O banco é fechado antes da requisição; qualquer acesso viraria 500.
func TestProtectedRouteWithoutToken(t *testing.T) {
	e := newEnv(t, testConfig())
	require.NoError(t, e.db.Close())

	for _, path := range []string{"/v1/watchlists/", "/v1/auth/me", "/v1/admin/stats"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		body := decode(t, rec)["error"].(map[string]interface{})
		assert.Equal(t, "UNAUTHORIZED", body["code"])
	}

	assert.Equal(t, 0, e.store.Calls("get"))
	assert.Equal(t, 0, e.store.Calls("set"))
}

func TestLoginRateLimit(t *testing.T) {
	e := newEnv(t, testConfig())

	for i := 0; i < 5; i++ {
		rec := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "x@test.com", "password": "password123"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, []string{"4", "3", "2", "1", "0"}[i], rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "x@test.com", "password": "password123"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode(t, rec)["error"].(map[string]interface{})["code"])
}

func TestSharedStoreDown_RequestsStillServed(t *testing.T) {
	e := newEnv(t, testConfig())
	tok := e.registerAndLogin(t, "u@test.com")
	e.store.SetFailure(errors.New("connection refused"))

	rec := e.do(t, http.MethodPost, "/v1/watchlists/items", tok, map[string]string{"title": "Heat"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"Heat"}, listTitles(t, e.do(t, http.MethodGet, "/v1/watchlists/", tok, nil)))

	rec = e.do(t, http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode(t, rec)
	assert.Equal(t, "degraded", health["status"])
	assert.Equal(t, "ok", health["database"])
	assert.Equal(t, "unavailable", health["redis"])
}

func TestAdminStats(t *testing.T) {
	e := newEnv(t, testConfig())
	tok := e.registerAndLogin(t, "boss@test.com")

	rec := e.do(t, http.MethodGet, "/v1/admin/stats", tok, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, e.app.Users.SetRole(t.Context(), "boss@test.com", domain.RoleAdmin))

	rec = e.do(t, http.MethodGet, "/v1/admin/stats", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(1), stats["users"])
	assert.Equal(t, float64(0), stats["items"])
}

func TestInfraRoutes(t *testing.T) {
	e := newEnv(t, testConfig())

	rec := e.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, "pong", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, decode(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	out := httptest.NewRecorder()
	e.app.Handler.ServeHTTP(out, req)
	assert.Equal(t, "abc-123", out.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", decode(t, out)["request_id"])

	e.do(t, http.MethodGet, "/v1/watchlists/", "", nil)
	rec = e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "gowatch_http_responses_total"))
}
