package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/robobook/chatbot-backend/internal/auth"
)

// AuthHandler handles the authentication endpoints.
type AuthHandler struct {
	users  auth.UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users auth.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// RegisterRoutes registers auth routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signup", h.signup)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("GET /auth/me", h.me)
}

// SignupRequest is the JSON body for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the JSON body returned by signup and /auth/me.
type UserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// TokenResponse is the JSON body returned by login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hashing password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	user := auth.User{
		Username:       req.Username,
		HashedPassword: hashed,
		Email:          req.Email,
		// The signup contract does not carry a display name; the username
		// stands in for it.
		FullName: req.Username,
	}
	if err := h.users.Put(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "Username already registered")
			return
		}
		h.logger.Error("storing user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.logger.Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusOK, UserResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.users.Get(r.Context(), username)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			h.logger.Error("loading user", "error", err)
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}
		// Fall through to the same rejection as a bad password: the
		// response must not reveal which field was wrong.
	}
	if err != nil || !auth.VerifyPassword(password, user.HashedPassword) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := h.tokens.Issue(username)
	if err != nil {
		h.logger.Error("issuing token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.logger.Info("user logged in", "username", username)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	username, err := h.tokens.Parse(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	user, err := h.users.Get(r.Context(), username)
	if err != nil {
		// A valid token for a vanished user is still a 401: the token no
		// longer identifies anyone.
		writeError(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
