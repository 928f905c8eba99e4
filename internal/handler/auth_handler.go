package handler

import (
	"net/http"
	"time"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/service"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
	maxBodySize int64
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *service.UserService, auth *service.AuthService, maxBodySize int64) *AuthHandler {
	return &AuthHandler{
		userService: users,
		authService: auth,
		maxBodySize: maxBodySize,
	}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	out, err := h.userService.Register(r.Context(), service.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Username:       req.Username,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: out.Message})
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a session token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	out, err := h.authService.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: out.Token, ExpiresAt: out.ExpiresAt, User: out.User})
}
