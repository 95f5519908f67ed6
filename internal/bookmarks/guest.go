package bookmarks

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/dealbook-dev/dealbook/internal/localstore"
)

// GuestCache holds the deal IDs a visitor bookmarked before logging in,
// as a JSON array under a single storage key.
type GuestCache struct {
	store  localstore.Store
	logger zerolog.Logger
}

func NewGuestCache(store localstore.Store, logger zerolog.Logger) *GuestCache {
	return &GuestCache{store: store, logger: logger}
}

// List returns the cached deal IDs. Missing, unreadable or non-array content
// reads as empty, and non-string entries are dropped.
func (g *GuestCache) List() []string {
	raw, ok, err := g.store.Get(localstore.KeyGuestBookmarks)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Failed to read guest bookmarks")
		return []string{}
	}
	if !ok {
		return []string{}
	}

	var entries []any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		g.logger.Debug().Err(err).Msg("Ignoring malformed guest bookmarks")
		return []string{}
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if id, ok := e.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Add caches dealID unless it is already present.
func (g *GuestCache) Add(dealID string) error {
	ids := g.List()
	if slices.Contains(ids, dealID) {
		return nil
	}
	return g.write(append(ids, dealID))
}

// Remove drops dealID from the cache.
func (g *GuestCache) Remove(dealID string) error {
	ids := g.List()
	kept := slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == dealID })
	if len(kept) == len(ids) {
		return nil
	}
	return g.write(kept)
}

// Replace overwrites the cache with ids, deduplicated. An empty list clears it.
func (g *GuestCache) Replace(ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return g.Clear()
	}
	return g.write(ids)
}

// Clear removes the storage key entirely.
func (g *GuestCache) Clear() error {
	if err := g.store.Remove(localstore.KeyGuestBookmarks); err != nil {
		return fmt.Errorf("failed to clear guest bookmarks: %w", err)
	}
	return nil
}

func (g *GuestCache) write(ids []string) error {
	if err := localstore.SetJSON(g.store, localstore.KeyGuestBookmarks, ids); err != nil {
		return fmt.Errorf("failed to save guest bookmarks: %w", err)
	}
	return nil
}

// dedupe keeps the first occurrence of each id.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
