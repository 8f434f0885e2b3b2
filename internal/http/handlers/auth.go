package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/community-site/internal/auth"
	"github.com/hongminglow/community-site/internal/config"
	"github.com/hongminglow/community-site/internal/http/respond"
	"github.com/hongminglow/community-site/internal/logging"
	"github.com/hongminglow/community-site/internal/models"
	"github.com/hongminglow/community-site/internal/models/dto"
	"github.com/hongminglow/community-site/internal/storage"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

var (
	errEmailRequired    = errors.New("email is required")
	errEmailInvalid     = errors.New("email is not a valid address")
	errPasswordTooShort = errors.New("password is too short")
	errPasswordTooLong  = errors.New("password is too long")
)

// registrationMessages maps validation failures to the text shown to users.
var registrationMessages = map[error]string{
	errEmailRequired:    "Email and password are required.",
	errEmailInvalid:     "Please enter a valid email address.",
	errPasswordTooShort: "Password must be at least 8 characters.",
	errPasswordTooLong:  "Password must be at most 72 bytes.",
}

// Guard wraps handlers with session and admin checks.
type Guard interface {
	Require(next http.Handler) http.Handler
	RequireAdmin(next http.Handler) http.Handler
}

// AuthHandler owns the register/login/logout/me endpoints.
type AuthHandler struct {
	store  storage.UserStore
	tokens *auth.TokenManager
	cfg    *config.Config
	logger logging.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, cfg *config.Config, logger logging.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, cfg: cfg, logger: logger}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux, guard Guard) {
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.Handle("GET /api/auth/me", guard.Require(http.HandlerFunc(h.handleMe)))
}

func (h *AuthHandler) cookieOptions() auth.CookieOptions {
	return auth.CookieOptions{Name: h.cfg.CookieName, Secure: h.cfg.CookieSecure}
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid user data")
		return
	}
	email, err := normalizeEmail(req.Email)
	if err == nil {
		err = validatePassword(req.Password)
	}
	if err != nil {
		respond.Error(w, http.StatusBadRequest, registrationMessages[err])
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		respond.Error(w, http.StatusBadRequest, "Role must be user or admin.")
		return
	}
	if role == models.RoleAdmin && !h.cfg.AllowAdminSignup {
		respond.Error(w, http.StatusBadRequest, "Admin registration is disabled.")
		return
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		h.logger.Error(r.Context(), "hash password", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	created, err := h.store.CreateUser(r.Context(), models.User{
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.logger.Error(r.Context(), "create user", "email", email, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.logger.Info(r.Context(), "user registered", "user_id", created.ID, "role", created.Role)
	h.issueSession(w, r, http.StatusCreated, "Registration successful!", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid email or password")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error(r.Context(), "login: fetch user", "email", email, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.issueSession(w, r, http.StatusOK, "Login successful!", user)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearSessionCookie(w, h.cookieOptions())
	respond.JSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", identity)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, status int, message string, user models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.logger.Error(r.Context(), "generate token", "user_id", user.ID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	auth.SetSessionCookie(w, h.cookieOptions(), token, h.tokens.TTL())
	respond.JSON(w, status, message, dto.AuthResponse{Token: token, User: user.Public()})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errEmailInvalid
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(password)) < minPasswordLength || !utf8.ValidString(password) {
		return errPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
