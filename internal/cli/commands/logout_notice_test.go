package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealbook-dev/dealbook/internal/cli/auth"
	"github.com/dealbook-dev/dealbook/internal/localstore"
)

func TestExpiredSession_PrintsNotice(t *testing.T) {
	f := newCLIFixture(t)
	require.NoError(t, f.store.Set(localstore.KeyAccessToken, f.backend.IssueToken(t, testEmail, -time.Minute)))
	require.NoError(t, f.store.Set(localstore.KeyGuestBookmarks, `["d1"]`))

	out, err := f.run(t, NewWhoamiCmd)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Contains(t, out, "Your session has expired")

	_, ok, err := f.store.Get(localstore.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"d1"}, f.guestDeals(t))

	out, err = f.run(t, NewWhoamiCmd)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.NotContains(t, out, "expired", "the notice is shown once")
}

func TestUnreadableSession_PrintsNotice(t *testing.T) {
	f := newCLIFixture(t)
	require.NoError(t, f.store.Set(localstore.KeyAccessToken, "not-a-token"))

	out, err := f.run(t, NewBookmarkCmd, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "could not be read")
	assert.Contains(t, out, "No bookmarks found")
}

func TestExplicitLogout_PrintsSingleNotice(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run(t, NewLogoutCmd)
	require.NoError(t, err)
	assert.Equal(t, "✓ Logged out.\n", out)
}
