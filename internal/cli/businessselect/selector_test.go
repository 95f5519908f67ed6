package businessselect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealbook-dev/dealbook/internal/models"
)

var (
	salon = models.Business{ID: "b-1", Name: "Salon"}
	spa   = models.Business{ID: "b-2", Name: "Day Spa"}
)

func failPrompt(t *testing.T) PromptFunc {
	return func([]models.Business, *models.Business) (int, error) {
		t.Fatal("prompt should not be shown")
		return 0, nil
	}
}

func TestResolveBusiness(t *testing.T) {
	businesses := []models.Business{salon, spa}

	t.Run("by id", func(t *testing.T) {
		b, err := ResolveBusiness(businesses, nil, "b-2", failPrompt(t))
		require.NoError(t, err)
		assert.Equal(t, spa, b)
	})

	t.Run("by name ignoring case", func(t *testing.T) {
		b, err := ResolveBusiness(businesses, nil, "day spa", failPrompt(t))
		require.NoError(t, err)
		assert.Equal(t, spa, b)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ResolveBusiness(businesses, nil, "b-9", failPrompt(t))
		assert.ErrorContains(t, err, "b-9")
	})

	t.Run("single business", func(t *testing.T) {
		b, err := ResolveBusiness([]models.Business{salon}, nil, "", failPrompt(t))
		require.NoError(t, err)
		assert.Equal(t, salon, b)
	})

	t.Run("none", func(t *testing.T) {
		_, err := ResolveBusiness(nil, nil, "b-1", failPrompt(t))
		assert.ErrorIs(t, err, ErrNoBusinesses)
	})

	t.Run("prompt", func(t *testing.T) {
		var gotCurrent *models.Business
		b, err := ResolveBusiness(businesses, &salon, "", func(_ []models.Business, current *models.Business) (int, error) {
			gotCurrent = current
			return 1, nil
		})
		require.NoError(t, err)
		assert.Equal(t, spa, b)
		assert.Equal(t, &salon, gotCurrent)
	})

	t.Run("prompt cancelled", func(t *testing.T) {
		cancelled := errors.New("cancelled")
		_, err := ResolveBusiness(businesses, nil, "", func([]models.Business, *models.Business) (int, error) {
			return 0, cancelled
		})
		assert.ErrorIs(t, err, cancelled)
	})

	t.Run("prompt out of range", func(t *testing.T) {
		_, err := ResolveBusiness(businesses, nil, "", func([]models.Business, *models.Business) (int, error) {
			return 5, nil
		})
		assert.Error(t, err)
	})
}
