package api

import (
	"net/http"
	"time"

	"github.com/example/ec-cart/internal/api/middleware"
	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/logger"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService *auth.Service
	log         *logger.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(authService *auth.Service, log *logger.Logger) *AuthHandlers {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandlers{authService: authService, log: log.Component("API")}
}

// SignUpRequest represents the registration request body. Role is honoured
// only when the caller already holds an admin token.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// SignInRequest represents the login request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// SessionResponse is returned by a successful sign-in
type SessionResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func newUserResponse(u *auth.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// SignUp registers a new account
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	role := auth.RoleCustomer
	if req.Role != "" {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.IsAdmin() {
			respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden", Message: "only admins may assign roles"})
			return
		}
		role = req.Role
	}

	u, err := h.authService.SignUp(r.Context(), req.Email, req.Password, role)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, newUserResponse(u))
}

// SignIn exchanges credentials for an access token. The token is returned
// in the body and also set as a cookie for browser clients.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, h.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, http.StatusOK, SessionResponse{
		User:      newUserResponse(session.User),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// SignOut clears the access token cookie. Bearer tokens simply expire.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the identity carried by the access token
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respondError(w, h.log, apperr.New(apperr.KindUnauthenticated, "", "", nil, auth.ErrInvalidToken))
		return
	}
	respondJSON(w, http.StatusOK, UserResponse{ID: claims.OwnerID, Email: claims.Email, Role: claims.Role})
}
