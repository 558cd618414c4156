package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	userKey   contextKey = "user"
)

// CredentialVerifier resolves the user behind the credentials carried by a request.
type CredentialVerifier interface {
	Verify(r *http.Request) (*domain.User, error)
}

// LocalVerifier checks an email and password sent as JSON.
type LocalVerifier struct {
	authService ports.AuthService
}

func NewLocalVerifier(authService ports.AuthService) *LocalVerifier {
	return &LocalVerifier{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (v *LocalVerifier) Verify(r *http.Request) (*domain.User, error) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		observe("login", domain.ErrUnauthenticated)
		return nil, domain.ErrUnauthenticated
	}

	user, err := v.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		observe("login", err)
		return nil, err
	}
	return user, nil
}

// BearerVerifier checks an access token from the Authorization header and
// reloads the user it names.
type BearerVerifier struct {
	sessions ports.SessionManager
	users    ports.UserService
}

func NewBearerVerifier(sessions ports.SessionManager, users ports.UserService) *BearerVerifier {
	return &BearerVerifier{sessions: sessions, users: users}
}

func (v *BearerVerifier) Verify(r *http.Request) (*domain.User, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := v.sessions.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	user, err := v.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Guard admits a request only when v resolves a user, which is then
// available through CurrentUser.
func Guard(v CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := v.Verify(r)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthenticated) {
					hlog.FromRequest(r).Error().Err(err).Msg("credential verification failed")
				}
				respondUnauthorized(w)
				return
			}
			if user == nil {
				respondUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, UserIDKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the user stored by Guard.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}
