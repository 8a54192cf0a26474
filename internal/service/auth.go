package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitbot/pkg/rbac"
	"habitbot/pkg/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrLoginDisabled is returned when no admin password hash is configured.
	ErrLoginDisabled = errors.New("password login is disabled")
)

// AdminAuth issues API tokens. There is a single owner, so there is no user table: the
// token subject is the role.
type AdminAuth struct {
	passwordHash string
	jwtSecret    string
	ttl          time.Duration
}

func NewAdminAuth(passwordHash, jwtSecret string, ttl time.Duration) *AdminAuth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AdminAuth{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		ttl:          ttl,
	}
}

// Login checks the admin password and returns an admin token.
func (a *AdminAuth) Login(_ context.Context, password string) (string, error) {
	if a.passwordHash == "" {
		return "", ErrLoginDisabled
	}
	if !util.CheckPassword(password, a.passwordHash) {
		return "", ErrInvalidCredentials
	}
	return a.IssueToken(rbac.RoleAdmin)
}

// IssueToken signs a token for role without a password. Used by the CLI.
func (a *AdminAuth) IssueToken(role string) (string, error) {
	if !rbac.IsRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return util.GenerateJWT(role, a.jwtSecret, a.ttl)
}
