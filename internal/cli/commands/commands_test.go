package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dealbook-dev/dealbook/internal/cli/client/clienttest"
	"github.com/dealbook-dev/dealbook/internal/config"
	"github.com/dealbook-dev/dealbook/internal/localstore"
	"github.com/dealbook-dev/dealbook/internal/models"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "secret123"
	testUserID   = "u-1"
)

var (
	salon = models.Business{ID: "b-1", Name: "Salon"}
	spa   = models.Business{ID: "b-2", Name: "Spa"}
)

// cliFixture runs commands against a fake backend with shared in-memory storage.
type cliFixture struct {
	backend *clienttest.Backend
	cfg     *config.Config
	store   *localstore.MemoryStore
	out     bytes.Buffer
	extra   []Option
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	backend := clienttest.New(t)
	backend.AddUser(t, clienttest.User{
		ID:         testUserID,
		Email:      testEmail,
		FirstName:  "Ana",
		LastName:   "Silva",
		Businesses: []models.Business{salon, spa},
		Roles:      map[string]string{"b-1": "owner", "b-2": "staff"},
	}, testPassword)

	t.Setenv("DEALBOOK_EMAIL", "")
	t.Setenv("DEALBOOK_PASSWORD", "")

	return &cliFixture{
		backend: backend,
		cfg: &config.Config{
			API:     config.APIConfig{URL: backend.URL(), Timeout: 5 * time.Second},
			Storage: config.StorageConfig{Backend: config.StorageMemory},
			Logging: config.LoggingConfig{Level: "warn", Format: "console"},
		},
		store: localstore.NewMemoryStore(),
	}
}

func (f *cliFixture) options(t *testing.T) []Option {
	opts := []Option{
		WithConfig(f.cfg),
		WithStore(f.store),
		WithOutput(&f.out),
		WithPasswordReader(func() (string, error) {
			t.Fatal("password prompt should not be shown")
			return "", nil
		}),
	}
	return append(opts, f.extra...)
}

// run executes the command built by newCmd with args and returns its output.
func (f *cliFixture) run(t *testing.T, newCmd func(...Option) *cobra.Command, args ...string) (string, error) {
	t.Helper()

	f.out.Reset()
	cmd := newCmd(f.options(t)...)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(context.Background())
	return f.out.String(), err
}

func (f *cliFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.run(t, NewLoginCmd, "--email", testEmail, "--password", testPassword)
	require.NoError(t, err)
}

func (f *cliFixture) guestDeals(t *testing.T) []string {
	t.Helper()
	var ids []string
	_, err := localstore.GetJSON(f.store, localstore.KeyGuestBookmarks, &ids)
	require.NoError(t, err)
	return ids
}
