// Package localstore persists small string values under fixed keys, the way a
// browser's local storage does for the web client.
//
// None of the backends lock across processes. Two processes racing on a
// read-modify-write (the guest bookmark list, typically) can lose an update.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Keys written by the session and bookmark layers.
const (
	KeyAccessToken     = "accessToken"
	KeyLegacyToken     = "token"
	KeyUser            = "user"
	KeyCurrentBusiness = "currentBusiness"
	KeyGuestBookmarks  = "guestBookmarkDeals"
)

// SessionKeys are removed on logout. Guest bookmarks survive a logout.
var SessionKeys = []string{KeyAccessToken, KeyLegacyToken, KeyUser, KeyCurrentBusiness}

// TokenKeys hold bearer tokens and are routed to the secret store when one is configured.
var TokenKeys = []string{KeyAccessToken, KeyLegacyToken}

// Store is a flat string key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// GetJSON decodes the value under key into v. It reports false when the key
// is missing or its value is not valid JSON for v.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Set(key, string(data))
}

// RemoveAll removes every key, continuing past failures.
func RemoveAll(s Store, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := s.Remove(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
