package auth

import (
	"context"
	"os"
)

// Environment variables read by EnvironmentSource
const (
	EnvUserID    = "IGAUDIT_DS_USER_ID"
	EnvCSRFToken = "IGAUDIT_CSRF_TOKEN"
	EnvSessionID = "IGAUDIT_SESSION_ID"
)

// EnvironmentSource reads the session from environment variables
type EnvironmentSource struct {
	getenv func(string) string
}

// NewEnvironmentSource creates a source backed by the process environment
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{getenv: os.Getenv}
}

// Name implements CredentialSource
func (e *EnvironmentSource) Name() string { return "env" }

// Cookies implements CredentialSource
func (e *EnvironmentSource) Cookies(ctx context.Context) (map[string]string, error) {
	cookies := make(map[string]string)
	for name, env := range map[string]string{
		CookieUserID:    EnvUserID,
		CookieCSRFToken: EnvCSRFToken,
		CookieSessionID: EnvSessionID,
	} {
		if v := e.getenv(env); v != "" {
			cookies[name] = v
		}
	}

	if len(cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return cookies, nil
}
