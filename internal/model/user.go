package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// User is an account that can list items and hold points.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	Points       int        `json:"points" db:"points"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsAdmin reports whether the user may moderate listings.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultStartingPoints is the balance a new account is opened with.
const DefaultStartingPoints = 100

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// NormalizeEmail trims and lowercases an address and checks it parses.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.New("invalid email address")
	}
	return email, nil
}

// Identity is a verified caller as produced by the authentication layer.
type Identity struct {
	UserID  int64
	Name    string
	IsAdmin bool
}
