package auth

import (
	"context"
	"errors"

	errs "igaudit/pkg/errors"
)

// Origin is the site whose cookies identify the signed-in user
const Origin = "https://www.instagram.com"

// Cookie names making up a session
const (
	CookieUserID    = "ds_user_id"
	CookieCSRFToken = "csrftoken"
	CookieSessionID = "sessionid"
)

// ErrSessionNotFound is returned when no source yields both the user id and
// the csrf token. It is a precondition error and never starts a scan.
var ErrSessionNotFound = errs.New(errs.ErrorTypePreconditionMissing, "session not found")

// ErrCredentialsNotFound is returned by a source that holds nothing
var ErrCredentialsNotFound = errors.New("credentials not found")

// ErrStoreUnavailable is returned by read-only sources asked to write
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Session identifies the signed-in user
type Session struct {
	UserID    string `json:"ds_user_id"`
	CSRFToken string `json:"csrftoken"`
	SessionID string `json:"sessionid,omitempty"`

	// Source names where the session was found; it is not persisted
	Source string `json:"-"`
}

// Valid reports whether the session has what a scan needs
func (s *Session) Valid() bool {
	return s != nil && s.UserID != "" && s.CSRFToken != ""
}

// Cookies returns the session as cookie name/value pairs
func (s *Session) Cookies() map[string]string {
	cookies := map[string]string{
		CookieUserID:    s.UserID,
		CookieCSRFToken: s.CSRFToken,
	}
	if s.SessionID != "" {
		cookies[CookieSessionID] = s.SessionID
	}
	return cookies
}

// Masked returns a copy safe to print or log
func (s *Session) Masked() Session {
	return Session{
		UserID:    s.UserID,
		CSRFToken: Mask(s.CSRFToken),
		SessionID: Mask(s.SessionID),
		Source:    s.Source,
	}
}

// CredentialSource reads the session cookies for Origin from somewhere
type CredentialSource interface {
	// Name identifies the source in logs and status output
	Name() string
	// Cookies returns the known cookies by name. A source holding nothing
	// returns ErrCredentialsNotFound.
	Cookies(ctx context.Context) (map[string]string, error)
}

// SessionStore is a CredentialSource that can also persist a session
type SessionStore interface {
	CredentialSource
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context) error
}

// DetectSession reads a session from src. Both ds_user_id and csrftoken
// must be present; sessionid is optional.
func DetectSession(ctx context.Context, src CredentialSource) (*Session, error) {
	cookies, err := src.Cookies(ctx)
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	session := &Session{
		UserID:    cookies[CookieUserID],
		CSRFToken: cookies[CookieCSRFToken],
		SessionID: cookies[CookieSessionID],
		Source:    src.Name(),
	}
	if !session.Valid() {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Mask hides all but the first and last 4 characters of a secret
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
