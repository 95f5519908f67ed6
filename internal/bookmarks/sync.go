package bookmarks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dealbook-dev/dealbook/internal/cli/client"
)

// SyncAPI is the slice of the backend used to reconcile guest bookmarks.
type SyncAPI interface {
	ListBookmarks(ctx context.Context) ([]client.BookmarkRecord, error)
	BulkCreateBookmarks(ctx context.Context, dealIDs []string) error
}

// SyncResult describes one reconciliation run.
type SyncResult struct {
	// Submitted are the deal IDs sent in the bulk request.
	Submitted []string
	// AlreadySynced were cached but already bookmarked on the backend.
	AlreadySynced []string
	// Pending are left in the cache for the next attempt.
	Pending []string
	// CacheCleared is set when the guest cache was emptied.
	CacheCleared bool
}

// Syncer uploads guest bookmarks after login.
type Syncer struct {
	guest  *GuestCache
	api    SyncAPI
	logger zerolog.Logger
}

func NewSyncer(guest *GuestCache, api SyncAPI, logger zerolog.Logger) *Syncer {
	return &Syncer{guest: guest, api: api, logger: logger}
}

// Sync submits every cached deal the backend does not already have in a
// single bulk request. On success the cache is cleared. On failure the cache
// is rewritten to hold only the unsynced deals and the bulk error is returned
// so the caller can report it; the next login retries them.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	ids := dedupe(s.guest.List())
	if len(ids) == 0 {
		return result, nil
	}

	existing := make(map[string]bool)
	records, err := s.api.ListBookmarks(ctx)
	if err != nil {
		// Best effort: without the backend list, everything is submitted.
		s.logger.Warn().Err(err).Msg("Failed to fetch bookmarks before sync")
	}
	for _, b := range NormalizeAll(records) {
		existing[b.Deal] = true
	}

	var missing []string
	for _, id := range ids {
		if existing[id] {
			result.AlreadySynced = append(result.AlreadySynced, id)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		if err := s.guest.Clear(); err != nil {
			return result, err
		}
		result.CacheCleared = true
		s.logger.Debug().Int("already_synced", len(result.AlreadySynced)).Msg("Guest bookmarks already synced")
		return result, nil
	}

	result.Submitted = missing

	if err := s.api.BulkCreateBookmarks(ctx, missing); err != nil {
		s.logger.Warn().Err(err).Int("pending", len(missing)).Msg("Bulk bookmark sync failed, keeping pending deals")
		result.Pending = missing
		syncErr := fmt.Errorf("failed to sync guest bookmarks: %w", err)
		if cacheErr := s.guest.Replace(missing); cacheErr != nil {
			return result, errors.Join(syncErr, cacheErr)
		}
		return result, syncErr
	}

	if err := s.guest.Clear(); err != nil {
		return result, err
	}
	result.CacheCleared = true

	s.logger.Info().Int("submitted", len(missing)).Msg("Synced guest bookmarks")
	return result, nil
}
