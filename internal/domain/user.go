package domain

import "time"

// ============================================================
// Users & auth
// ============================================================

// User owns accounts and recurring payments. PasswordHash is a bcrypt hash
// and never serialized.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	CurrencyCode string     `json:"currency"`
	Active       bool       `json:"active"`
	LastLogin    *time.Time `json:"last_login"`
	PasswordHash string     `json:"-"`
}

// LoginRequest carries credentials for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued tokens and the user projection.
type LoginResponse struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

// RefreshRequest carries the refresh token for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}
