package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dealbook-dev/dealbook/internal/cli/client"
	"github.com/dealbook-dev/dealbook/internal/localstore"
	"github.com/dealbook-dev/dealbook/internal/models"
	"github.com/dealbook-dev/dealbook/internal/token"
)

// API is the slice of the backend the controller talks to.
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	GetRole(ctx context.Context, businessID string) (string, error)
}

// Options groups dependencies for Controller.
type Options struct {
	Store  localstore.Store
	API    API
	Logger zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// OnLogin runs after every successful login, with the new session.
	OnLogin func(ctx context.Context, s Session)
	// OnLogout runs after the session has been torn down, with the reason.
	OnLogout func(reason LogoutReason)
}

// Controller is the single writer of the session. Callers read it through
// Snapshot or Subscribe.
//
// Login is not guarded against concurrent calls; a UI should disable
// resubmission while IsLoading is set.
type Controller struct {
	store    localstore.Store
	api      API
	logger   zerolog.Logger
	now      func() time.Time
	onLogin  func(ctx context.Context, s Session)
	onLogout func(reason LogoutReason)
	validate *validator.Validate

	mu          sync.RWMutex
	session     Session
	subscribers map[int]func(Session)
	nextSubID   int
}

// NewController constructs a controller in the uninitialized state.
func NewController(opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		store:       opts.Store,
		api:         opts.API,
		logger:      opts.Logger,
		now:         now,
		onLogin:     opts.OnLogin,
		onLogout:    opts.OnLogout,
		validate:    validator.New(),
		session:     Session{State: StateUninitialized},
		subscribers: make(map[int]func(Session)),
	}
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.clone()
}

// Subscribe registers fn to receive every new session state. The returned
// function removes the subscription.
func (c *Controller) Subscribe(fn func(Session)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Close drops all subscribers. The persisted session is left untouched.
func (c *Controller) Close() {
	c.mu.Lock()
	c.subscribers = make(map[int]func(Session))
	c.mu.Unlock()
}

// Token returns the persisted bearer token, preferring the current key over
// the legacy one.
func (c *Controller) Token() (string, bool) {
	for _, key := range localstore.TokenKeys {
		raw, ok, err := c.store.Get(key)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed to read token")
			continue
		}
		if ok && raw != "" {
			return raw, true
		}
	}
	return "", false
}

// Restore rebuilds the session from storage at startup.
func (c *Controller) Restore(ctx context.Context) Session {
	c.update(func(s *Session) {
		s.State = StateLoading
		s.IsLoading = true
	})

	raw, ok := c.Token()
	if !ok {
		c.logger.Debug().Msg("No stored token, starting anonymous")
		return c.update(func(s *Session) { *s = Session{State: StateAnonymous} })
	}

	claims, err := token.Parse(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Stored token is unreadable, logging out")
		c.forceLogout(LogoutInvalidToken)
		return c.Snapshot()
	}

	if claims.Expired(c.now()) {
		c.logger.Info().Msg("Stored token has expired, logging out")
		c.forceLogout(LogoutExpired)
		return c.Snapshot()
	}

	user := claims.User()
	current := c.restoreBusiness(user)

	if current != nil && c.api != nil {
		role, err := c.api.GetRole(ctx, current.ID)
		if err != nil {
			c.logger.Warn().Err(err).Str("business_id", current.ID).Msg("Failed to fetch role")
		} else {
			user.Role = role
		}
	}

	c.logger.Debug().Str("user_id", user.ID).Msg("Session restored")

	return c.update(func(s *Session) {
		*s = Session{
			State:           StateAuthenticated,
			User:            user,
			CurrentBusiness: current,
			Businesses:      user.Businesses,
		}
	})
}

// restoreBusiness returns the stored business when it still belongs to the
// user, otherwise the user's first business, which is then persisted.
func (c *Controller) restoreBusiness(user *models.User) *models.Business {
	var stored models.Business
	ok, err := localstore.GetJSON(c.store, localstore.KeyCurrentBusiness, &stored)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read current business")
	}
	if ok {
		if b, member := user.Business(stored.ID); member {
			return &b
		}
		c.logger.Debug().Str("business_id", stored.ID).Msg("Stored business no longer belongs to user")
	}

	if len(user.Businesses) == 0 {
		return nil
	}

	first := user.Businesses[0]
	if err := localstore.SetJSON(c.store, localstore.KeyCurrentBusiness, first); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist current business")
	}
	return &first
}

// Login authenticates against the backend. Rejections are reported through
// the returned session's ErrorMessage, never as an error; the error is only
// set when the session could not be persisted locally.
func (c *Controller) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := c.validate.Struct(creds); err != nil {
		c.logger.Debug().Err(err).Msg("Login form rejected")
		return c.update(func(s *Session) { s.ErrorMessage = MsgMissingCredentials }), nil
	}

	c.update(func(s *Session) {
		s.IsLoading = true
		s.ErrorMessage = ""
	})

	resp, err := c.api.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		msg := loginErrorMessage(err)
		c.logger.Warn().Err(err).Str("email", creds.Email).Msg("Login failed")
		return c.update(func(s *Session) {
			s.IsLoading = false
			s.ErrorMessage = msg
		}), nil
	}

	raw := resp.BearerToken()
	claims, err := token.Parse(raw)
	if err != nil {
		c.logger.Error().Err(err).Msg("Login returned an unreadable token")
		return c.update(func(s *Session) {
			s.IsLoading = false
			s.ErrorMessage = MsgInvalidSession
		}), nil
	}

	user := claims.User()
	var current *models.Business
	if len(user.Businesses) > 0 {
		first := user.Businesses[0]
		current = &first
	}

	if err := c.persistLogin(raw, user, current); err != nil {
		if cleanupErr := localstore.RemoveAll(c.store, localstore.SessionKeys...); cleanupErr != nil {
			c.logger.Warn().Err(cleanupErr).Msg("Failed to clear partially persisted session")
		}
		snap := c.update(func(s *Session) {
			*s = Session{State: StateAnonymous, ErrorMessage: MsgSessionNotSaved}
		})
		return snap, err
	}

	c.logger.Info().Str("user_id", user.ID).Msg("Logged in")

	snap := c.update(func(s *Session) {
		*s = Session{
			State:           StateAuthenticated,
			User:            user,
			CurrentBusiness: current,
			Businesses:      user.Businesses,
		}
	})

	if c.onLogin != nil {
		c.onLogin(ctx, snap)
	}

	return snap, nil
}

func (c *Controller) persistLogin(raw string, user *models.User, current *models.Business) error {
	if err := c.store.Set(localstore.KeyAccessToken, raw); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	if err := c.store.Remove(localstore.KeyLegacyToken); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to remove legacy token")
	}
	if err := localstore.SetJSON(c.store, localstore.KeyUser, user); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	if current != nil {
		if err := localstore.SetJSON(c.store, localstore.KeyCurrentBusiness, current); err != nil {
			return fmt.Errorf("failed to persist current business: %w", err)
		}
	}
	return nil
}

// loginErrorMessage maps a login failure to the message shown to the user.
func loginErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if strings.Contains(strings.ToLower(apiErr.Body), accountNotActivatedMarker) {
			return MsgAccountNotActivated
		}
		return MsgInvalidCredentials
	}
	return MsgServerUnreachable
}

// SwitchBusiness selects another of the user's businesses. The role fetched
// for the previous business no longer applies and is cleared; it is fetched
// again on the next Restore.
func (c *Controller) SwitchBusiness(businessID string) (Session, error) {
	c.mu.Lock()
	if !c.session.Authenticated() {
		c.mu.Unlock()
		return Session{}, ErrNotAuthenticated
	}

	b, ok := c.session.User.Business(businessID)
	if !ok {
		c.mu.Unlock()
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownBusiness, businessID)
	}

	if err := localstore.SetJSON(c.store, localstore.KeyCurrentBusiness, b); err != nil {
		c.mu.Unlock()
		return Session{}, fmt.Errorf("failed to persist current business: %w", err)
	}

	if c.session.CurrentBusiness == nil || c.session.CurrentBusiness.ID != b.ID {
		c.session.User.Role = ""
	}
	c.session.CurrentBusiness = &b
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(subs, snap)
	return snap, nil
}

// Logout clears the in-memory session and every persisted session key, then
// runs the OnLogout hook. Storage failures are returned after the in-memory
// state has been reset.
func (c *Controller) Logout() error {
	return c.logout(LogoutRequested)
}

func (c *Controller) logout(reason LogoutReason) error {
	err := localstore.RemoveAll(c.store, localstore.SessionKeys...)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear persisted session")
	}

	c.update(func(s *Session) { *s = Session{State: StateAnonymous} })
	c.logger.Info().Str("reason", string(reason)).Msg("Logged out")

	if c.onLogout != nil {
		c.onLogout(reason)
	}

	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// forceLogout ends a stored session that can no longer be used. Storage
// errors are already logged by logout.
func (c *Controller) forceLogout(reason LogoutReason) {
	_ = c.logout(reason)
}

// update applies fn under the lock and notifies subscribers with the result.
func (c *Controller) update(fn func(s *Session)) Session {
	c.mu.Lock()
	fn(&c.session)
	snap, subs := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(subs, snap)
	return snap
}

func (c *Controller) snapshotLocked() (Session, []func(Session)) {
	subs := make([]func(Session), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return c.session.clone(), subs
}

func (c *Controller) notify(subs []func(Session), snap Session) {
	for _, fn := range subs {
		fn(snap.clone())
	}
}
