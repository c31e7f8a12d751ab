// Package session provides server-held sessions bound to an authenticated identity.
package session

import (
	"time"
)

// DefaultTTL is the fixed lifetime of a session, counted from its creation.
const DefaultTTL = 24 * time.Hour

// Identity is the resolved user behind a session.
type Identity struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"sub"`
}

// TokenSet holds the credentials returned by the identity provider.
// None of the fields are serialized: tokens never leave the session.
type TokenSet struct {
	// AccessToken is sent as a bearer credential on every upstream call
	AccessToken string `json:"-"`

	// IDToken is only used as the id_token_hint on logout
	IDToken string `json:"-"`

	// RefreshToken is held but not used for renewal
	RefreshToken string `json:"-"`
}

// FlowContext is the single-use state of a pending authorization request.
type FlowContext struct {
	State        string
	Nonce        string
	CodeVerifier string
}

// Session represents one client's server-side state.
//
// User and Tokens are either both set or both nil. Flow is only set between
// the authorization redirect and the callback that consumes it.
type Session struct {
	// ID is the opaque session key (64-char hex string)
	ID string

	// User is the authenticated identity, nil while anonymous
	User *Identity

	// Tokens is the token set, nil while anonymous
	Tokens *TokenSet

	// Flow is the pending OAuth flow context, nil outside a login attempt
	Flow *FlowContext

	// CreatedAt is when this session was created
	CreatedAt time.Time

	// ExpiresAt is when this session will expire
	ExpiresAt time.Time
}

// Authenticated reports whether the session carries an identity and tokens.
func (s *Session) Authenticated() bool {
	return s.User != nil && s.Tokens != nil
}

// Login replaces the identity and token set wholesale.
func (s *Session) Login(user Identity, tokens TokenSet) {
	s.User = &user
	s.Tokens = &tokens
}

// Logout drops the identity and token set together.
func (s *Session) Logout() {
	s.User = nil
	s.Tokens = nil
}

// ClearFlow discards the pending flow context.
// It reports whether there was anything to clear.
func (s *Session) ClearFlow() bool {
	had := s.Flow != nil
	s.Flow = nil
	return had
}

func (s *Session) clone() *Session {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	if s.Tokens != nil {
		t := *s.Tokens
		c.Tokens = &t
	}
	if s.Flow != nil {
		f := *s.Flow
		c.Flow = &f
	}
	return &c
}
