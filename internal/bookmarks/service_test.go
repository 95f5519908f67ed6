package bookmarks

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealbook-dev/dealbook/internal/models"
	"github.com/dealbook-dev/dealbook/internal/session"
)

type staticSessions struct {
	s session.Session
}

func (s staticSessions) Snapshot() session.Session { return s.s }

func anonymous() staticSessions {
	return staticSessions{s: session.Session{State: session.StateAnonymous}}
}

func loggedIn() staticSessions {
	return staticSessions{s: session.Session{
		State: session.StateAuthenticated,
		User:  &models.User{ID: userID, Email: userEmail},
	}}
}

func TestService_GuestUsesLocalCache(t *testing.T) {
	f := newSyncFixture(t)
	svc := NewService(anonymous(), f.api, f.guest, zerolog.Nop())
	ctx := context.Background()

	b, err := svc.Add(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.Bookmark{Deal: "d1"}, b)

	_, err = svc.Add(ctx, "d2")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Bookmark{{Deal: "d1"}, {Deal: "d2"}}, list)

	require.NoError(t, svc.Remove(ctx, "d1"))
	assert.ErrorIs(t, svc.Remove(ctx, "d1"), ErrNotBookmarked)
	assert.Equal(t, []string{"d2"}, f.guest.List())

	assert.Empty(t, f.backend.DealIDs(userID))
	assert.Zero(t, f.backend.Calls("POST /bookmark-deal"))
}

func TestService_AuthenticatedUsesBackend(t *testing.T) {
	f := newSyncFixture(t)
	svc := NewService(loggedIn(), f.api, f.guest, zerolog.Nop())
	ctx := context.Background()

	b, err := svc.Add(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", b.Deal)
	assert.Equal(t, userID, b.User)
	assert.NotEmpty(t, b.ID)
	assert.NotNil(t, b.CreatedAt)

	_, err = svc.Add(ctx, "d1")
	require.Error(t, err, "backend rejects duplicates")

	_, err = svc.Add(ctx, "d2")
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d1", list[0].Deal)
	assert.Equal(t, "d2", list[1].Deal)

	require.NoError(t, svc.Remove(ctx, "d1"))
	assert.ErrorIs(t, svc.Remove(ctx, "d1"), ErrNotBookmarked)
	assert.Equal(t, []string{"d2"}, f.backend.DealIDs(userID))

	assert.Empty(t, f.guest.List())
}
