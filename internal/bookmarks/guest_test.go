package bookmarks

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealbook-dev/dealbook/internal/localstore"
)

func newGuestCache() (*GuestCache, *localstore.MemoryStore) {
	store := localstore.NewMemoryStore()
	return NewGuestCache(store, zerolog.Nop()), store
}

func TestGuestCache_AddIsIdempotent(t *testing.T) {
	cache, store := newGuestCache()

	require.NoError(t, cache.Add("d-1"))
	require.NoError(t, cache.Add("d-1"))
	require.NoError(t, cache.Add("d-2"))

	assert.Equal(t, []string{"d-1", "d-2"}, cache.List())

	raw, ok, err := store.Get(localstore.KeyGuestBookmarks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["d-1","d-2"]`, raw)
}

func TestGuestCache_ListDefensive(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
		want []string
	}{
		{"missing key", nil, []string{}},
		{"malformed json", ptr("[oops"), []string{}},
		{"object", ptr(`{"d-1":true}`), []string{}},
		{"string", ptr(`"d-1"`), []string{}},
		{"null", ptr(`null`), []string{}},
		{"mixed entries", ptr(`["d-1", 7, null, {"id":"x"}, "d-2"]`), []string{"d-1", "d-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, store := newGuestCache()
			if tt.raw != nil {
				require.NoError(t, store.Set(localstore.KeyGuestBookmarks, *tt.raw))
			}
			assert.Equal(t, tt.want, cache.List())
		})
	}
}

func TestGuestCache_AddOverMalformedContent(t *testing.T) {
	cache, store := newGuestCache()
	require.NoError(t, store.Set(localstore.KeyGuestBookmarks, "{broken"))

	require.NoError(t, cache.Add("d-1"))
	assert.Equal(t, []string{"d-1"}, cache.List())
}

func TestGuestCache_RemoveAndClear(t *testing.T) {
	cache, store := newGuestCache()
	require.NoError(t, cache.Add("d-1"))
	require.NoError(t, cache.Add("d-2"))

	require.NoError(t, cache.Remove("d-1"))
	require.NoError(t, cache.Remove("d-unknown"))
	assert.Equal(t, []string{"d-2"}, cache.List())

	require.NoError(t, cache.Clear())
	_, ok, err := store.Get(localstore.KeyGuestBookmarks)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuestCache_Replace(t *testing.T) {
	cache, store := newGuestCache()

	require.NoError(t, cache.Replace([]string{"d-3", "d-3", "d-4"}))
	assert.Equal(t, []string{"d-3", "d-4"}, cache.List())

	require.NoError(t, cache.Replace(nil))
	_, ok, _ := store.Get(localstore.KeyGuestBookmarks)
	assert.False(t, ok)
}

func ptr(s string) *string { return &s }
