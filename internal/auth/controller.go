// Package auth drives the browser login and logout flow on top of a session store.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/al-bashkir/stable-portal/internal/oidc"
	"github.com/al-bashkir/stable-portal/internal/session"
)

// HomeURL is where a finished logout lands when the provider cannot be involved.
const HomeURL = "/"

// DashboardURL is where a successful login lands.
const DashboardURL = "/dashboard"

// IdentityProvider is the subset of the OIDC provider the login flow needs.
type IdentityProvider interface {
	AuthorizationURL(state, nonce, codeChallenge string) string
	Exchange(ctx context.Context, code, codeVerifier, nonce string) (*session.TokenSet, error)
	UserInfo(ctx context.Context, accessToken string) (*session.Identity, error)
	EndSessionURL(idToken string) string
}

// ProviderSource returns the discovered provider, or an error while there is none.
type ProviderSource func() (IdentityProvider, error)

// ReadyProvider adapts an oidc.Ready to a ProviderSource.
func ReadyProvider(r *oidc.Ready) ProviderSource {
	return func() (IdentityProvider, error) {
		p, err := r.Provider()
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Flow is the login state machine bound to a session.
//
// Begin returns the URL to redirect the browser to. Complete resolves a
// callback and returns a *FlowError on failure. Logout destroys the session
// and returns the URL to redirect to.
type Flow interface {
	Begin(ctx context.Context, sessionID string) (string, error)
	Complete(ctx context.Context, sessionID string, params CallbackParams) error
	Logout(ctx context.Context, sessionID string) string
}

// New returns the demo flow when demo is set, the OIDC flow otherwise.
func New(store session.Store, provider ProviderSource, demo bool, logger *slog.Logger) Flow {
	if demo {
		return NewDemo(store, logger)
	}
	return NewController(store, provider, logger)
}

// Controller runs the Authorization Code flow with PKCE against the provider.
type Controller struct {
	store    session.Store
	provider ProviderSource
	logger   *slog.Logger
}

// NewController creates a new login flow controller.
func NewController(store session.Store, provider ProviderSource, logger *slog.Logger) *Controller {
	return &Controller{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Begin stores fresh state, nonce and PKCE verifier on the session and
// returns the provider authorization URL. A previous pending attempt on the
// same session is replaced.
func (c *Controller) Begin(ctx context.Context, sessionID string) (string, error) {
	p, err := c.provider()
	if err != nil {
		c.logger.Error("login requested but identity provider is not available", "error", err)
		return "", configurationError(err)
	}

	params, err := oidc.NewFlowParams()
	if err != nil {
		return "", fmt.Errorf("failed to generate flow parameters: %w", err)
	}

	err = c.store.Update(ctx, sessionID, func(s *session.Session) error {
		s.Flow = &session.FlowContext{
			State:        params.State,
			Nonce:        params.Nonce,
			CodeVerifier: params.CodeVerifier,
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store flow context: %w", err)
	}

	c.logger.Debug("login flow started")

	return p.AuthorizationURL(params.State, params.Nonce, params.CodeChallenge), nil
}

// Complete resolves the provider callback.
//
// The pending flow context is taken off the session before anything else,
// so it is cleared exactly once whatever the outcome and cannot be replayed.
// A failed callback for a pending login leaves the session anonymous.
// Provider errors and state mismatches are rejected before any network call.
func (c *Controller) Complete(ctx context.Context, sessionID string, params CallbackParams) error {
	flow, err := c.takeFlow(ctx, sessionID)

	if params.Error != "" {
		c.logger.Warn("identity provider returned an error",
			"error", params.Error,
			"description", params.ErrorDescription,
		)
		return providerError(params.Error, params.ErrorDescription)
	}

	if err != nil {
		c.logger.Warn("callback without a pending login", "error", err)
		return csrfError(err)
	}

	if flow == nil || params.State == "" ||
		subtle.ConstantTimeCompare([]byte(params.State), []byte(flow.State)) != 1 {
		c.logger.Warn("callback state does not match the pending login")
		return csrfError(nil)
	}

	if params.Code == "" {
		return tokenExchangeError(errors.New("missing authorization code"))
	}

	p, err := c.provider()
	if err != nil {
		return configurationError(err)
	}

	tokens, err := p.Exchange(ctx, params.Code, flow.CodeVerifier, flow.Nonce)
	if err != nil {
		c.logger.Error("token exchange failed", "error", err)
		return tokenExchangeError(err)
	}

	user, err := p.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		c.logger.Error("user info request failed", "error", err)
		return userInfoError(err)
	}

	err = c.store.Update(ctx, sessionID, func(s *session.Session) error {
		s.Login(*user, *tokens)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store login: %w", err)
	}

	c.logger.Info("user logged in", "subject", user.Subject, "email", user.Email)

	return nil
}

// takeFlow removes and returns the pending flow context of the session.
// A session with a pending login also drops any earlier identity, so the
// callback leaves it anonymous unless it succeeds.
func (c *Controller) takeFlow(ctx context.Context, sessionID string) (*session.FlowContext, error) {
	if sessionID == "" {
		return nil, session.ErrNotFound
	}

	var flow *session.FlowContext
	err := c.store.Update(ctx, sessionID, func(s *session.Session) error {
		flow = s.Flow
		if s.ClearFlow() {
			s.Logout()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// Logout destroys the session and returns the provider end-session URL,
// or HomeURL when there is no ID token or no provider.
func (c *Controller) Logout(ctx context.Context, sessionID string) string {
	var idToken string
	if sessionID != "" {
		if s, err := c.store.Get(ctx, sessionID); err == nil && s.Tokens != nil {
			idToken = s.Tokens.IDToken
		}
		if err := c.store.Destroy(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			c.logger.Error("failed to destroy session", "error", err)
		}
	}

	if idToken == "" {
		return HomeURL
	}

	p, err := c.provider()
	if err != nil {
		return HomeURL
	}

	c.logger.Info("user logged out")

	return p.EndSessionURL(idToken)
}
