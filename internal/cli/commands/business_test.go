package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dealbook-dev/dealbook/internal/cli/auth"
	"github.com/dealbook-dev/dealbook/internal/localstore"
	"github.com/dealbook-dev/dealbook/internal/models"
)

func (f *cliFixture) currentBusiness(t *testing.T) models.Business {
	t.Helper()
	var b models.Business
	ok, err := localstore.GetJSON(f.store, localstore.KeyCurrentBusiness, &b)
	require.NoError(t, err)
	require.True(t, ok)
	return b
}

func TestBusinessList(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run(t, NewBusinessCmd, "ls")
	require.NoError(t, err)
	assert.Regexp(t, `b-1\s+Salon\s+\*`, out)
	assert.Regexp(t, `b-2\s+Spa`, out)

	out, err = f.run(t, NewBusinessCmd, "ls", "-o", "yaml")
	require.NoError(t, err)

	var list []models.Business
	require.NoError(t, yaml.Unmarshal([]byte(out), &list))
	assert.Equal(t, []models.Business{salon, spa}, list)
}

func TestBusinessSwitch_ByArgument(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run(t, NewBusinessCmd, "switch", "spa")
	require.NoError(t, err)
	assert.Contains(t, out, "Now acting for Spa (b-2)")
	assert.Equal(t, spa, f.currentBusiness(t))

	out, err = f.run(t, NewWhoamiCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Spa (b-2)")
	assert.Contains(t, out, "staff")
}

func TestBusinessSwitch_Prompt(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	var offered []models.Business
	f.extra = append(f.extra, WithBusinessPrompt(func(businesses []models.Business, current *models.Business) (int, error) {
		offered = businesses
		require.NotNil(t, current)
		assert.Equal(t, salon.ID, current.ID)
		return 1, nil
	}))

	_, err := f.run(t, NewBusinessCmd, "switch")
	require.NoError(t, err)
	assert.Equal(t, []models.Business{salon, spa}, offered)
	assert.Equal(t, spa, f.currentBusiness(t))
}

func TestBusinessSwitch_Errors(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, NewBusinessCmd, "switch", "b-2")
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	f.login(t)

	_, err = f.run(t, NewBusinessCmd, "switch", "b-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	cancelled := errors.New("^C")
	f.extra = append(f.extra, WithBusinessPrompt(func([]models.Business, *models.Business) (int, error) {
		return 0, cancelled
	}))
	_, err = f.run(t, NewBusinessCmd, "switch")
	assert.ErrorIs(t, err, cancelled)
	assert.Equal(t, salon, f.currentBusiness(t))
}
