package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dealbook-dev/dealbook/internal/cli/auth"
	"github.com/dealbook-dev/dealbook/internal/models"
)

func TestWhoami_RequiresLogin(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, NewWhoamiCmd)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestWhoami_Table(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run(t, NewWhoamiCmd)
	require.NoError(t, err)

	assert.Contains(t, out, "Ana Silva")
	assert.Contains(t, out, testEmail)
	assert.Contains(t, out, "Salon (b-1)")
	assert.Contains(t, out, "owner")
}

func TestWhoami_JSON(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run(t, NewWhoamiCmd, "-o", "json")
	require.NoError(t, err)

	var p profile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, testUserID, p.ID)
	assert.Equal(t, "owner", p.Role)
	assert.Equal(t, &salon, p.Business)
	assert.Equal(t, []models.Business{salon, spa}, p.Businesses)
}

func TestWhoami_YAML(t *testing.T) {
	f := newCLIFixture(t)
	f.login(t)

	out, err := f.run(t, NewWhoamiCmd, "--output", "yaml")
	require.NoError(t, err)

	var p map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &p))
	assert.Equal(t, testEmail, p["email"])
	assert.Equal(t, "owner", p["role"])
}

func TestWhoami_UnknownFormat(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, NewWhoamiCmd, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
