// Package auth keeps bearer tokens in the OS keychain/credential manager.
package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "dealbook-cli"

// ErrNotAuthenticated is returned when a command needs a session and none is stored.
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'dealbook login' first")

// Keyring exposes the keychain as a key/value store scoped to one API host,
// so it can stand in for the token keys of the local store.
type Keyring struct {
	host string
}

// NewKeyring scopes keychain entries to host.
func NewKeyring(host string) *Keyring {
	return &Keyring{host: host}
}

// entry is the keychain user name for key on this host.
func (k *Keyring) entry(key string) string {
	return fmt.Sprintf("%s-%s", key, k.host)
}

// Get returns the stored value; a missing entry is not an error.
func (k *Keyring) Get(key string) (string, bool, error) {
	value, err := keyring.Get(service, k.entry(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, true, nil
}

func (k *Keyring) Set(key, value string) error {
	if err := keyring.Set(service, k.entry(key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

// Remove deletes the entry. Removing a missing entry succeeds.
func (k *Keyring) Remove(key string) error {
	if err := keyring.Delete(service, k.entry(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
