package services

import (
	"log/slog"
	"strings"
)

// NameServiceConfig configures the HTTP adapter over the registry.
type NameServiceConfig struct {
	// Log receives validation and registration events. Defaults to slog.Default().
	Log *slog.Logger
	// AdminToken protects /admin routes with basic auth (user:pass).
	// Admin routes are not served when empty.
	AdminToken string
	// MaxBodyBytes bounds the size of POST bodies. Defaults to 64 KiB.
	MaxBodyBytes int64
}

// RegisterUserRequest is the body of POST /admin/id/{username}.
// When PublicKey is empty the server generates a fresh keypair.
type RegisterUserRequest struct {
	PublicKey string `json:"public_key,omitempty"`
}

// RegisterUserResponse confirms a key registration.
// PrivateKey is only set when the server generated the keypair, and is
// never stored by the server.
type RegisterUserResponse struct {
	Username   string `json:"username"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
}

// UserListResponse lists registered usernames.
type UserListResponse struct {
	Users []string `json:"users"`
}

// NameListResponse lists resource names with an accepted update.
type NameListResponse struct {
	Names []string `json:"names"`
}

// ParseAdminToken splits a user:pass token.
func ParseAdminToken(token string) (user, pass string) {
	idx := strings.Index(token, ":")
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}
