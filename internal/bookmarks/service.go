// Package bookmarks manages deal bookmarks for both guests, whose bookmarks
// live in local storage, and authenticated users, whose bookmarks live on
// the backend.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/dealbook-dev/dealbook/internal/cli/client"
	"github.com/dealbook-dev/dealbook/internal/models"
	"github.com/dealbook-dev/dealbook/internal/session"
)

// ErrNotBookmarked is returned when removing a deal that is not bookmarked.
var ErrNotBookmarked = errors.New("deal is not bookmarked")

// API is the backend surface used for authenticated bookmarks.
type API interface {
	SyncAPI
	CreateBookmark(ctx context.Context, dealID string) (*client.BookmarkRecord, error)
	DeleteBookmark(ctx context.Context, bookmarkID string) error
}

// SessionSource reports the current session.
type SessionSource interface {
	Snapshot() session.Session
}

// Service routes bookmark operations to the backend or the guest cache
// depending on whether a user is logged in.
type Service struct {
	sessions SessionSource
	api      API
	guest    *GuestCache
	logger   zerolog.Logger
}

func NewService(sessions SessionSource, api API, guest *GuestCache, logger zerolog.Logger) *Service {
	return &Service{sessions: sessions, api: api, guest: guest, logger: logger}
}

func (s *Service) authenticated() bool {
	return s.sessions.Snapshot().Authenticated()
}

// Add bookmarks dealID. Guests only get the deal ID back.
func (s *Service) Add(ctx context.Context, dealID string) (models.Bookmark, error) {
	if !s.authenticated() {
		if err := s.guest.Add(dealID); err != nil {
			return models.Bookmark{}, err
		}
		s.logger.Debug().Str("deal_id", dealID).Msg("Cached guest bookmark")
		return models.Bookmark{Deal: dealID}, nil
	}

	record, err := s.api.CreateBookmark(ctx, dealID)
	if err != nil {
		return models.Bookmark{}, fmt.Errorf("failed to bookmark deal %s: %w", dealID, err)
	}

	b := Normalize(*record)
	if b.Deal == "" {
		b.Deal = dealID
	}
	return b, nil
}

// Remove drops the bookmark for dealID.
func (s *Service) Remove(ctx context.Context, dealID string) error {
	if !s.authenticated() {
		if !slices.Contains(s.guest.List(), dealID) {
			return ErrNotBookmarked
		}
		return s.guest.Remove(dealID)
	}

	list, err := s.List(ctx)
	if err != nil {
		return err
	}

	for _, b := range list {
		if b.Deal != dealID {
			continue
		}
		if err := s.api.DeleteBookmark(ctx, b.ID); err != nil {
			return fmt.Errorf("failed to remove bookmark for deal %s: %w", dealID, err)
		}
		return nil
	}

	return ErrNotBookmarked
}

// List returns the current bookmarks.
func (s *Service) List(ctx context.Context) ([]models.Bookmark, error) {
	if !s.authenticated() {
		ids := s.guest.List()
		list := make([]models.Bookmark, 0, len(ids))
		for _, id := range ids {
			list = append(list, models.Bookmark{Deal: id})
		}
		return list, nil
	}

	records, err := s.api.ListBookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return NormalizeAll(records), nil
}
