package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turdes/auth/internal/adapters/password"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/services"
)

type testApp struct {
	server *httptest.Server
	repo   *memUserRepo
}

func newTestApp(t *testing.T, mutate func(*RouterOptions)) *testApp {
	t.Helper()

	repo := newMemUserRepo()
	sessions, err := services.NewSessionManager(repo, services.SessionConfig{
		Secret:     []byte("test-secret"),
		Issuer:     "turdes-auth",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, zerolog.Nop())
	require.NoError(t, err)

	hasher, err := password.NewArgon2Hasher(password.Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)

	authService := services.NewAuthService(repo, sessions, hasher)
	userService := services.NewUserService(repo)

	opts := RouterOptions{
		AuthHandler: NewAuthHandler(authService),
		UserHandler: NewUserHandler(userService),
		Local:       NewLocalVerifier(authService),
		Bearer:      NewBearerVerifier(sessions, userService),
		Logger:      zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}

	server := httptest.NewServer(NewHandler(opts))
	t.Cleanup(server.Close)
	return &testApp{server: server, repo: repo}
}

func (a *testApp) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testApp) registerAndLogin(t *testing.T) domain.TokenPair {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "s3cret-pass", "name": "Ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pair := decodeBody[domain.TokenPair](t, resp)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func TestRegister(t *testing.T) {
	app := newTestApp(t, nil)

	resp := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "Ana@Example.com", "password": "s3cret-pass", "name": "Ana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, "USER", body["role"])
	assert.NotContains(t, body, "PasswordHash")
	assert.NotContains(t, body, "passwordHash")
	assert.NotContains(t, body, "accessToken")

	resp = app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "another-pass", "name": "Ana",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "user already exists", decodeBody[errorResponse](t, resp).Error)
}

func TestRegister_BadRequests(t *testing.T) {
	app := newTestApp(t, nil)

	for name, body := range map[string]any{
		"malformed json": "{",
		"unknown field":  map[string]string{"email": "a@b.co", "password": "s3cret-pass", "name": "A", "role": "ADMIN"},
		"invalid email":  map[string]string{"email": "nope", "password": "s3cret-pass", "name": "A"},
		"short password": map[string]string{"email": "a@b.co", "password": "short", "name": "A"},
	} {
		t.Run(name, func(t *testing.T) {
			resp := app.do(t, http.MethodPost, "/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestLogin_Rejected(t *testing.T) {
	app := newTestApp(t, nil)
	app.registerAndLogin(t)

	for name, body := range map[string]any{
		"wrong password": map[string]string{"email": "ana@example.com", "password": "wrong-pass"},
		"unknown email":  map[string]string{"email": "bob@example.com", "password": "s3cret-pass"},
		"missing fields": map[string]string{"email": "ana@example.com"},
		"no body":        nil,
	} {
		t.Run(name, func(t *testing.T) {
			resp := app.do(t, http.MethodPost, "/auth/login", "", body)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "unauthorized", decodeBody[errorResponse](t, resp).Error)
		})
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	app := newTestApp(t, nil)
	pair := app.registerAndLogin(t)

	resp := app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decodeBody[map[string]string](t, resp)
	assert.NotEmpty(t, refreshed["accessToken"])
	assert.NotContains(t, refreshed, "refreshToken")

	resp = app.do(t, http.MethodGet, "/api/me", refreshed["accessToken"], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana@example.com", decodeBody[map[string]any](t, resp)["email"])

	resp = app.do(t, http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User logged out successfully", decodeBody[messageResponse](t, resp).Message)

	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logging out twice is harmless.
	resp = app.do(t, http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecondLoginReplacesRefreshToken(t *testing.T) {
	app := newTestApp(t, nil)
	first := app.registerAndLogin(t)

	resp := app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody[domain.TokenPair](t, resp)

	for _, token := range []string{first.AccessToken, second.AccessToken} {
		resp = app.do(t, http.MethodGet, "/api/me", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": second.RefreshToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefresh_BadRequests(t *testing.T) {
	app := newTestApp(t, nil)

	resp := app.do(t, http.MethodPost, "/auth/refresh", "", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": ""})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerGuard(t *testing.T) {
	app := newTestApp(t, nil)
	pair := app.registerAndLogin(t)

	resp := app.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/auth/logout", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/api/me", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, u := range app.repo.users {
		app.repo.delete(u.ID)
	}
	resp = app.do(t, http.MethodGet, "/api/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, nil)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/healthz", "", nil).StatusCode)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/readyz", "", nil).StatusCode)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/metrics", "", nil).StatusCode)

	down := newTestApp(t, func(o *RouterOptions) { o.DB = failingPinger{} })
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/readyz", "", nil).StatusCode)
}

func TestGoogleRouteOnlyWhenEnabled(t *testing.T) {
	app := newTestApp(t, nil)
	resp := app.do(t, http.MethodPost, "/auth/google", "", map[string]string{"credential": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	enabled := newTestApp(t, func(o *RouterOptions) { o.GoogleEnabled = true })
	resp = enabled.do(t, http.MethodPost, "/auth/google", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No verifier is configured, so any credential is rejected.
	resp = enabled.do(t, http.MethodPost, "/auth/google", "", map[string]string{"credential": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, func(o *RouterOptions) { o.RateLimitPerMinute = 2 })

	body := map[string]string{"refreshToken": "garbage"}
	app.do(t, http.MethodPost, "/auth/refresh", "", body)
	app.do(t, http.MethodPost, "/auth/refresh", "", body)
	resp := app.do(t, http.MethodPost, "/auth/refresh", "", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Health checks are not rate limited.
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/healthz", "", nil).StatusCode)
}
