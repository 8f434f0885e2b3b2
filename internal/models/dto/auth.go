package dto

import "github.com/hongminglow/community-site/internal/models"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login; the token is also set as a cookie.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}
