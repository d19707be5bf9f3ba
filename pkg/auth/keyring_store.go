package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igaudit"
	keyringKey     = "instagram_session"
)

// KeyringStore keeps the session in the system keychain
type KeyringStore struct {
	service string
	key     string
}

// NewKeyringStore creates a keyring-backed session store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService, key: keyringKey}
}

// Name implements CredentialSource
func (k *KeyringStore) Name() string { return "keyring" }

// Available reports whether the keychain can be written on this system
func (k *KeyringStore) Available() bool {
	const probe = "test_availability"
	if err := keyring.Set(k.service, probe, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(k.service, probe)
	return true
}

// Cookies implements CredentialSource
func (k *KeyringStore) Cookies(ctx context.Context) (map[string]string, error) {
	data, err := keyring.Get(k.service, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session.Cookies(), nil
}

// Save implements SessionStore
func (k *KeyringStore) Save(ctx context.Context, session *Session) error {
	if !session.Valid() {
		return ErrSessionNotFound
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := keyring.Set(k.service, k.key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete implements SessionStore
func (k *KeyringStore) Delete(ctx context.Context) error {
	if err := keyring.Delete(k.service, k.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
