package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/turdes/auth/internal/adapters/password"
	repo "github.com/turdes/auth/internal/adapters/repository/postgres"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/services"
)

func setupPostgresApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repo.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repo.Migrate(ctx, db, zerolog.Nop()))

	gormDB, err := repo.NewGorm(db)
	require.NoError(t, err)
	userRepo := repo.NewUserRepository(gormDB)

	sessions, err := services.NewSessionManager(userRepo, services.SessionConfig{
		Secret:              []byte("test-secret"),
		Issuer:              "turdes-auth",
		AccessTTL:           15 * time.Minute,
		RefreshTTL:          7 * 24 * time.Hour,
		RotateRefreshTokens: true,
	}, zerolog.Nop())
	require.NoError(t, err)

	hasher, err := password.NewArgon2Hasher(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	authService := services.NewAuthService(userRepo, sessions, hasher,
		services.WithAuditRepository(repo.NewAuditRepository(gormDB)),
	)
	userService := services.NewUserService(userRepo)

	server := httptest.NewServer(NewHandler(RouterOptions{
		AuthHandler: NewAuthHandler(authService),
		UserHandler: NewUserHandler(userService),
		Local:       NewLocalVerifier(authService),
		Bearer:      NewBearerVerifier(sessions, userService),
		DB:          db,
		Logger:      zerolog.Nop(),
	}))
	t.Cleanup(server.Close)

	return &testApp{server: server}
}

func TestAuthFlow_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupPostgresApp(t)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/readyz", "", nil).StatusCode)

	pair := app.registerAndLogin(t)

	resp := app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeBody[domain.TokenPair](t, resp)
	require.NotEmpty(t, rotated.RefreshToken)

	// The rotated-out token is dead.
	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/auth/logout", rotated.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
