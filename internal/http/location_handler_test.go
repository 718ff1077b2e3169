package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skywatch/internal/domain"
	"skywatch/internal/service"
	"skywatch/internal/weather"
)

type dataEnv struct {
	router   *gin.Engine
	provider *weather.MockClient
	store    *memStore
	tokens   map[string]string
}

func newDataEnv(t *testing.T, cache service.WeatherCache) *dataEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	jwtSvc := newTestJWT(t)

	tokens := make(map[string]string)
	for _, u := range []domain.User{
		{ID: "11111111-1111-4111-8111-111111111111", Username: "alice", Email: "alice@example.com"},
		{ID: "22222222-2222-4222-8222-222222222222", Username: "bob", Email: "bob@example.com"},
	} {
		store.users[u.ID] = u
		issued, err := jwtSvc.Issue(u)
		require.NoError(t, err)
		tokens[u.Username] = issued.Token
	}

	provider := &weather.MockClient{
		Current:     json.RawMessage(`{"name":"Paris","main":{"temp":14.2}}`),
		Suggestions: json.RawMessage(`[{"name":"Paris","country":"FR"}]`),
	}
	locationSvc := service.NewLocationService(zap.NewNop(), memLocations{store})
	weatherSvc := service.NewWeatherService(zap.NewNop(), provider, cache, time.Minute)

	r := NewDataRouter(RouterConfig{Logger: zap.NewNop()},
		NewLocationHandler(zap.NewNop(), locationSvc),
		NewWeatherHandler(zap.NewNop(), weatherSvc),
		jwtSvc, store)
	return &dataEnv{router: r, provider: provider, store: store, tokens: tokens}
}

func TestLocationHandler_CRUD(t *testing.T) {
	env := newDataEnv(t, nil)
	alice := env.tokens["alice"]

	rec := performRequest(env.router, http.MethodPost, "/api/userData/locations", map[string]any{
		"name": "Paris", "latitude": 48.85, "longitude": 2.35,
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decodeBody(t, rec)["savedLocations"].([]any)
	require.Len(t, saved, 1)
	paris := saved[0].(map[string]any)
	id := paris["id"].(string)
	assert.NotContains(t, paris, "userId")

	rec = performRequest(env.router, http.MethodPost, "/api/userData/locations", map[string]any{
		"name": "Lima", "latitude": -12.04, "longitude": -77.04,
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decodeBody(t, rec)["savedLocations"].([]any), 2)

	rec = performRequest(env.router, http.MethodGet, "/api/userData/locations?search=PAR", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["savedLocations"].([]any), 1)

	rec = performRequest(env.router, http.MethodGet, "/api/userData/locations/"+id, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Paris", decodeBody(t, rec)["savedLocation"].(map[string]any)["name"])

	rec = performRequest(env.router, http.MethodPut, "/api/userData/locations/"+id, map[string]any{
		"name": "Paris 1er", "latitude": 48.86, "longitude": 2.34,
	}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Paris 1er", decodeBody(t, rec)["savedLocation"].(map[string]any)["name"])

	rec = performRequest(env.router, http.MethodDelete, "/api/userData/locations/"+id, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["savedLocations"].([]any), 1)

	rec = performRequest(env.router, http.MethodDelete, "/api/userData/locations/"+id, nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLocationHandler_IsolatedPerUser(t *testing.T) {
	env := newDataEnv(t, nil)

	rec := performRequest(env.router, http.MethodPost, "/api/userData/locations", map[string]any{
		"name": "Paris", "latitude": 48.85, "longitude": 2.35,
	}, env.tokens["alice"])
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["savedLocations"].([]any)[0].(map[string]any)["id"].(string)

	rec = performRequest(env.router, http.MethodGet, "/api/userData/locations/"+id, nil, env.tokens["bob"])
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = performRequest(env.router, http.MethodGet, "/api/userData/locations", nil, env.tokens["bob"])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["savedLocations"].([]any))
}

func TestLocationHandler_RequiresToken(t *testing.T) {
	env := newDataEnv(t, nil)
	rec := performRequest(env.router, http.MethodGet, "/api/userData/locations", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLocationHandler_Validation(t *testing.T) {
	env := newDataEnv(t, nil)
	rec := performRequest(env.router, http.MethodPost, "/api/userData/locations", map[string]any{
		"name": "Nowhere", "latitude": 123.0,
	}, env.tokens["alice"])
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody(t, rec)["fields"].(map[string]any)
	assert.Contains(t, fields, "latitude")
	assert.Contains(t, fields, "longitude")
}

func TestWeatherHandler_ProxiesAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	env := newDataEnv(t, service.NewRedisWeatherCache(client))

	for i := 0; i < 2; i++ {
		rec := performRequest(env.router, http.MethodGet, "/api/weather?latitude=48.85&longitude=2.35", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"name":"Paris","main":{"temp":14.2}}`, rec.Body.String())
	}
	assert.Equal(t, int64(1), env.provider.Calls())

	rec := performRequest(env.router, http.MethodGet, "/api/weather/suggestions?search=paris", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"Paris","country":"FR"}]`, rec.Body.String())
}

func TestWeatherHandler_Errors(t *testing.T) {
	env := newDataEnv(t, nil)

	rec := performRequest(env.router, http.MethodGet, "/api/weather?latitude=200&longitude=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(env.router, http.MethodGet, "/api/weather/suggestions", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.provider.Err = &weather.StatusError{StatusCode: http.StatusInternalServerError}
	rec = performRequest(env.router, http.MethodGet, "/api/weather?latitude=1&longitude=1", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	env.provider.Err = weather.ErrNoAPIKey
	rec = performRequest(env.router, http.MethodGet, "/api/weather?latitude=2&longitude=2", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_HealthMetricsAndCORS(t *testing.T) {
	env := newAccountsEnv(t, nil)

	rec := performRequest(env.router, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	registerUser(t, env.router, "alice", "alice@example.com", "password123")
	rec = performRequest(env.router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",route="/api/users/register",service="accounts",status="201"} 1`)

	req := httptest.NewRequest(http.MethodOptions, "/api/users/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNoContent, out.Code)
	assert.Equal(t, "http://localhost:3000", out.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/users/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	out = httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	assert.Empty(t, out.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RecoversPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newEngine(RouterConfig{Logger: zap.NewNop()}, "test")
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := performRequest(r, http.MethodGet, "/boom", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
