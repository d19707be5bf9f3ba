package auth

import (
	"context"
	"errors"
	"fmt"

	"igaudit/pkg/logger"
)

// Chain tries sources in order; the first one yielding a complete session
// wins. Sources that fail are logged and skipped.
type Chain struct {
	sources []CredentialSource
	logger  logger.Logger
}

// NewChain creates a chain over sources
func NewChain(log logger.Logger, sources ...CredentialSource) *Chain {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Chain{sources: sources, logger: log.WithField("component", "auth")}
}

// Name implements CredentialSource
func (c *Chain) Name() string { return "chain" }

// Sources returns the chained sources in lookup order
func (c *Chain) Sources() []CredentialSource { return c.sources }

// Cookies implements CredentialSource
func (c *Chain) Cookies(ctx context.Context) (map[string]string, error) {
	session, err := c.Detect(ctx)
	if err != nil {
		return nil, ErrCredentialsNotFound
	}
	return session.Cookies(), nil
}

// Detect returns the first complete session and records which source it
// came from
func (c *Chain) Detect(ctx context.Context) (*Session, error) {
	for _, src := range c.sources {
		session, err := DetectSession(ctx, src)
		if err == nil {
			c.logger.DebugWithFields("Session found", map[string]interface{}{
				"source":  src.Name(),
				"user_id": session.UserID,
			})
			return session, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			c.logger.WithError(err).DebugWithFields("Credential source unavailable", map[string]interface{}{
				"source": src.Name(),
			})
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrSessionNotFound
}

// Manager saves sessions to the first writable store that accepts them and
// removes them from all stores
type Manager struct {
	stores []SessionStore
}

// NewManager creates a credential manager over stores, in preference order
func NewManager(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves session using the first store that succeeds and returns its name
func (m *Manager) Store(ctx context.Context, session *Session) (string, error) {
	if session == nil || session.UserID == "" {
		return "", errors.New("user ID is required")
	}
	if session.CSRFToken == "" {
		return "", errors.New("CSRF token is required")
	}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Save(ctx, session); err != nil {
			lastErr = err
			continue
		}
		return store.Name(), nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return "", errors.New("no available credential stores")
}

// Retrieve returns the first complete session held by any store
func (m *Manager) Retrieve(ctx context.Context) (*Session, error) {
	for _, store := range m.stores {
		if session, err := DetectSession(ctx, store); err == nil {
			return session, nil
		}
	}
	return nil, ErrSessionNotFound
}

// Delete removes the session from every store. It fails only when no store
// held one.
func (m *Manager) Delete(ctx context.Context) error {
	var deleted bool
	var errs []error

	for _, store := range m.stores {
		err := store.Delete(ctx)
		switch {
		case err == nil:
			deleted = true
		case !errors.Is(err, ErrCredentialsNotFound):
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}

	if deleted {
		return nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete credentials: %w", errors.Join(errs...))
	}
	return ErrCredentialsNotFound
}
