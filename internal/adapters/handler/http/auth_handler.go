package http

import (
	"net/http"

	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"s3cret-pass"`
	Name     string `json:"name" example:"Ana"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

// Register godoc
// @Summary      Registers a new user
// @Description  Creates a user with the USER role. No tokens are issued; call `/auth/login` afterwards.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      registerRequest  true  "New user"
// @Success      201      {object}  domain.User
// @Failure      400      {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	observe("register", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login godoc
// @Summary      Logs a user in
// @Description  Checks email and password and returns an access token and a refresh token. Logging in again replaces the previous refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      loginRequest  true  "Credentials"
// @Success      200      {object}  domain.TokenPair
// @Failure      401      {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	pair, err := h.authService.Login(r.Context(), user)
	observe("login", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// Refresh godoc
// @Summary      Refreshes the access token
// @Description  Exchanges the current refresh token for a new access token. A new refresh token is returned only when rotation is enabled.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.TokenPair
// @Failure      400      {object}  errorResponse
// @Failure      401      {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		observe("refresh", domain.ErrUnauthenticated)
		respondUnauthorized(w)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	observe("refresh", err)
	if err != nil {
		respondUnauthorized(w)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// Logout godoc
// @Summary      Logs the authenticated user out
// @Description  Revokes the stored refresh token. Access tokens already issued stay valid until they expire.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	err := h.authService.Logout(r.Context(), user.ID)
	observe("logout", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "User logged out successfully"})
}

// GoogleLogin godoc
// @Summary      Logs a user in with a Google ID token
// @Description  Verifies the Google credential, creating the user on first login, and returns a token pair.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      googleLoginRequest  true  "Google credential"
// @Success      200      {object}  domain.TokenPair
// @Failure      400      {object}  errorResponse
// @Failure      401      {object}  errorResponse
// @Router       /auth/google [post]
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(r, &req); err != nil || req.Credential == "" {
		respondError(w, http.StatusBadRequest, "missing credential")
		return
	}

	pair, err := h.authService.LoginWithGoogle(r.Context(), req.Credential)
	observe("google", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}
