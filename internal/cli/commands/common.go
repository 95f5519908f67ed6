package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/dealbook-dev/dealbook/internal/bookmarks"
	"github.com/dealbook-dev/dealbook/internal/cli/auth"
	"github.com/dealbook-dev/dealbook/internal/cli/businessselect"
	"github.com/dealbook-dev/dealbook/internal/cli/client"
	"github.com/dealbook-dev/dealbook/internal/config"
	"github.com/dealbook-dev/dealbook/internal/localstore"
	"github.com/dealbook-dev/dealbook/internal/logger"
	"github.com/dealbook-dev/dealbook/internal/session"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Option overrides a dependency of a command. Production code passes none.
type Option func(*options)

type options struct {
	cfg            *config.Config
	store          localstore.Store
	out            io.Writer
	readPassword   func() (string, error)
	promptBusiness businessselect.PromptFunc
}

// WithConfig skips loading configuration from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithStore replaces the configured storage backend.
func WithStore(store localstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithPasswordReader replaces the terminal password prompt.
func WithPasswordReader(fn func() (string, error)) Option {
	return func(o *options) { o.readPassword = fn }
}

// WithBusinessPrompt replaces the interactive business selection.
func WithBusinessPrompt(fn businessselect.PromptFunc) Option {
	return func(o *options) { o.promptBusiness = fn }
}

func newOptions(opts []Option) *options {
	o := &options{
		out:            os.Stdout,
		readPassword:   readTerminalPassword,
		promptBusiness: businessselect.PromptBusinessSelection,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// app is everything a command needs, wired from configuration.
type app struct {
	cfg       *config.Config
	out       io.Writer
	logger    zerolog.Logger
	store     localstore.Store
	api       *client.Client
	guest     *bookmarks.GuestCache
	syncer    *bookmarks.Syncer
	sessions  *session.Controller
	bookmarks *bookmarks.Service

	// lastSync is filled in by the post-login sync hook.
	lastSync *syncOutcome

	closers []func() error
}

type syncOutcome struct {
	result bookmarks.SyncResult
	err    error
}

// newApp wires the client stack and restores the persisted session.
func newApp(ctx context.Context, o *options) (*app, error) {
	cfg := o.cfg
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	a := &app{cfg: cfg, out: o.out, logger: logger.GetLogger()}

	if o.store != nil {
		a.store = o.store
	} else {
		store, closer, err := openStore(cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	a.api = client.New(cfg.API.URL, cfg.API.Timeout)
	a.api.SetLogger(a.logger)

	a.guest = bookmarks.NewGuestCache(a.store, a.logger)
	a.syncer = bookmarks.NewSyncer(a.guest, a.api, a.logger)

	a.sessions = session.NewController(session.Options{
		Store:  a.store,
		API:    a.api,
		Logger: a.logger,
		OnLogin: func(ctx context.Context, _ session.Session) {
			result, err := a.syncer.Sync(ctx)
			a.lastSync = &syncOutcome{result: result, err: err}
		},
		OnLogout: a.printLogoutNotice,
	})
	a.api.SetTokenSource(a.sessions.Token)
	a.bookmarks = bookmarks.NewService(a.sessions, a.api, a.guest, a.logger)

	a.sessions.Restore(ctx)

	return a, nil
}

// printLogoutNotice tells the user why a stored session was dropped.
// An explicit logout reports itself.
func (a *app) printLogoutNotice(reason session.LogoutReason) {
	switch reason {
	case session.LogoutExpired:
		fmt.Fprintln(a.out, "Your session has expired. Please log in again: dealbook login")
	case session.LogoutInvalidToken:
		fmt.Fprintln(a.out, "Your saved session could not be read. Please log in again: dealbook login")
	}
}

// Close releases the storage backend.
func (a *app) Close() {
	a.sessions.Close()
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

// requireSession returns the current session or the not-logged-in error.
func (a *app) requireSession() (session.Session, error) {
	s := a.sessions.Snapshot()
	if !s.Authenticated() {
		return s, auth.ErrNotAuthenticated
	}
	return s, nil
}

// openStore builds the configured storage backend. When the keyring is
// enabled, token keys are kept there instead of on disk.
func openStore(cfg *config.Config, log zerolog.Logger) (localstore.Store, func() error, error) {
	var (
		store  localstore.Store
		closer func() error
	)

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		store = localstore.NewMemoryStore()
	case config.StorageSQLite:
		sqlite, err := localstore.OpenSQLite(localstore.SQLitePath(cfg.Storage.Dir), log)
		if err != nil {
			return nil, nil, err
		}
		store, closer = sqlite, sqlite.Close
	default:
		file := localstore.NewFileStore(localstore.FilePath(cfg.Storage.Dir))
		file.SetLogger(log)
		store = file
	}

	if cfg.Storage.Keyring {
		store = localstore.NewSplitStore(store, auth.NewKeyring(keyringHost(cfg.API.URL)), localstore.TokenKeys...)
	}

	return store, closer, nil
}

// keyringHost scopes keyring entries to the API host.
func keyringHost(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return apiURL
	}
	return u.Host
}

func validateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format '%s' (use table, json or yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls table for the default format.
func render(w io.Writer, format string, v any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}
