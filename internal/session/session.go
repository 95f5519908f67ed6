// Package session owns the client's authentication state: who is logged in,
// which business they are acting for, and whether a login is in flight.
package session

import (
	"errors"

	"github.com/dealbook-dev/dealbook/internal/models"
)

// State is the lifecycle position of a session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// LogoutReason tells the logout hook why the session ended.
type LogoutReason string

const (
	LogoutRequested    LogoutReason = "requested"
	LogoutExpired      LogoutReason = "expired"
	LogoutInvalidToken LogoutReason = "invalid_token"
)

// User-facing login failure messages.
const (
	MsgInvalidCredentials  = "Invalid email or password."
	MsgAccountNotActivated = "Your account has not been activated yet. Please check your email for the activation link."
	MsgServerUnreachable   = "Unable to reach the server. Please try again later."
	MsgMissingCredentials  = "Please enter a valid email address and password."
	MsgInvalidSession      = "The server returned an unreadable session. Please try again."
	MsgSessionNotSaved     = "Your session could not be saved on this device."
)

// accountNotActivatedMarker is matched against the backend's error body.
const accountNotActivatedMarker = "account not activated"

var (
	ErrNotAuthenticated = errors.New("no authenticated session")
	ErrUnknownBusiness  = errors.New("business does not belong to the current user")
)

// Session is a point-in-time view of the authentication state.
type Session struct {
	State           State
	User            *models.User
	CurrentBusiness *models.Business
	Businesses      []models.Business
	IsLoading       bool
	ErrorMessage    string
}

// Authenticated reports whether a user is logged in.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// clone deep-copies the session so snapshots never alias controller state.
func (s Session) clone() Session {
	out := s
	if s.User != nil {
		u := *s.User
		u.Businesses = append([]models.Business(nil), s.User.Businesses...)
		out.User = &u
	}
	if s.CurrentBusiness != nil {
		b := *s.CurrentBusiness
		out.CurrentBusiness = &b
	}
	out.Businesses = append([]models.Business(nil), s.Businesses...)
	return out
}

// Credentials are what the user types into the login form.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}
