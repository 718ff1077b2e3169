package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skywatch/internal/domain"
	"skywatch/internal/repository"
	"skywatch/internal/service"
)

// memStore implementa los repositorios de usuarios y ubicaciones en memoria.
type memStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	locations []domain.Location
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]domain.User)}
}

func (m *memStore) conflicts(username, email, excludeID string) repository.Conflicts {
	var c repository.Conflicts
	for id, u := range m.users {
		if id == excludeID {
			continue
		}
		c.Username = c.Username || (username != "" && u.Username == username)
		c.Email = c.Email || (email != "" && u.Email == email)
	}
	return c
}

func (m *memStore) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.conflicts(user.Username, user.Email, "")
	if c.Username {
		return errors.Join(repository.ErrDuplicate, repository.ErrDuplicateUsername)
	}
	if c.Email {
		return errors.Join(repository.ErrDuplicate, repository.ErrDuplicateEmail)
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memStore) GetByLogin(_ context.Context, username, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memStore) FindConflicts(_ context.Context, username, email, excludeID string) (repository.Conflicts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflicts(username, email, excludeID), nil
}

func (m *memStore) Update(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) LinkOAuth(_ context.Context, id, provider, subject string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.OAuthProvider, u.OAuthID, u.IsVerified, u.UpdatedAt = provider, subject, true, updatedAt
	m.users[id] = u
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

// memLocations comparte el lock del store de usuarios.
type memLocations struct{ *memStore }

func (m memLocations) Create(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
	return nil
}

func (m memLocations) ListByUser(_ context.Context, userID, search string) ([]domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Location, 0)
	for _, loc := range m.locations {
		if loc.UserID == userID && strings.Contains(strings.ToLower(loc.Name), strings.ToLower(search)) {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (m memLocations) GetByID(_ context.Context, userID, id string) (domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, loc := range m.locations {
		if loc.ID == id && loc.UserID == userID {
			return loc, nil
		}
	}
	return domain.Location{}, pgx.ErrNoRows
}

func (m memLocations) Update(_ context.Context, loc domain.Location) (domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.locations {
		if existing.ID == loc.ID && existing.UserID == loc.UserID {
			loc.CreatedAt = existing.CreatedAt
			m.locations[i] = loc
			return loc, nil
		}
	}
	return domain.Location{}, pgx.ErrNoRows
}

func (m memLocations) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.ID == id && loc.UserID == userID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type stubIdentity struct {
	identity service.FederatedIdentity
	err      error
}

func (s stubIdentity) Verify(context.Context, string) (service.FederatedIdentity, error) {
	return s.identity, s.err
}

type testEnv struct {
	store  *memStore
	jwt    *service.JWTService
	router *gin.Engine
}

func newTestJWT(t *testing.T) *service.JWTService {
	t.Helper()
	jwtSvc, err := service.NewJWTService("test-secret", time.Hour, "skywatch-test")
	require.NoError(t, err)
	return jwtSvc
}

func newAccountsEnv(t *testing.T, identity service.IdentityVerifier) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	jwtSvc := newTestJWT(t)
	userSvc := service.NewUserService(zap.NewNop(), store, service.NewArgon2Hasher(1024, 1, 1), identity, true)
	r := NewRouter(RouterConfig{Logger: zap.NewNop(), CORSOrigin: "http://localhost:3000"},
		NewUserHandler(zap.NewNop(), userSvc, jwtSvc), jwtSvc, store)
	return &testEnv{store: store, jwt: jwtSvc, router: r}
}

func performRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type authResult struct {
	ID    string
	Token string
}

func registerUser(t *testing.T, r http.Handler, username, email, password string) authResult {
	t.Helper()
	rec := performRequest(r, http.MethodPost, "/api/users/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	return authResult{ID: user["id"].(string), Token: body["token"].(string)}
}
