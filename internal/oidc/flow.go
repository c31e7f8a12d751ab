package oidc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/al-bashkir/stable-portal/internal/session"
)

// homeURL is where logout lands when no provider end-session is possible.
const homeURL = "/"

// FlowParams contains the single-use values for one authorization attempt.
type FlowParams struct {
	// State is the OIDC state parameter for CSRF protection
	State string

	// Nonce binds the ID token to this attempt
	Nonce string

	// CodeVerifier is the PKCE code verifier (must be stored for token exchange)
	CodeVerifier string

	// CodeChallenge is the S256 challenge sent on the authorization request
	CodeChallenge string
}

// NewFlowParams generates fresh state, nonce and PKCE values.
func NewFlowParams() (*FlowParams, error) {
	// Generate PKCE verifier and challenge
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	// Generate state for CSRF protection
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	nonce, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &FlowParams{
		State:         state,
		Nonce:         nonce,
		CodeVerifier:  verifier,
		CodeChallenge: generateCodeChallenge(verifier),
	}, nil
}

// AuthorizationURL builds the provider authorization URL with client_id,
// redirect_uri, response_type=code, scope, state, nonce and the S256 PKCE
// challenge. It has no side effects.
func (p *Provider) AuthorizationURL(state, nonce, codeChallenge string) string {
	return p.oauth2Config.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange exchanges an authorization code for tokens.
// It uses the PKCE code verifier to complete the flow.
// When the provider returns an ID token it is verified (signature, issuer,
// audience, expiry) and its nonce must equal the one sent for this attempt.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier, nonce string) (*session.TokenSet, error) {
	ctx = p.clientContext(ctx)

	// Exchange authorization code for tokens
	token, err := p.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("failed to verify ID token: %w", err)
		}
		if idToken.Nonce != nonce {
			return nil, fmt.Errorf("ID token nonce mismatch")
		}
	}

	return &session.TokenSet{
		AccessToken:  token.AccessToken,
		IDToken:      rawIDToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// UserInfo fetches the identity behind an access token from the provider's
// user-info endpoint.
func (p *Provider) UserInfo(ctx context.Context, accessToken string) (*session.Identity, error) {
	ctx = p.clientContext(ctx)

	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})

	info, err := p.oidcProvider.UserInfo(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	var claims map[string]interface{}
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	return identityFromClaims(claims), nil
}

// EndSessionURL builds the provider logout URL with the ID token hint.
// It never fails: without an ID token, an end-session endpoint, or a
// parseable endpoint it returns the application home.
func (p *Provider) EndSessionURL(idToken string) string {
	if idToken == "" || p.metadata.EndSessionEndpoint == "" {
		return homeURL
	}

	u, err := url.Parse(p.metadata.EndSessionEndpoint)
	if err != nil {
		return homeURL
	}

	q := u.Query()
	q.Set("id_token_hint", idToken)
	if p.postLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", p.postLogoutRedirectURI)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// generateCodeVerifier creates a cryptographically random PKCE code verifier.
// The verifier is 32 random bytes encoded as base64url (43 characters).
// Per RFC 7636, the verifier must be 43-128 characters.
func generateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateCodeChallenge creates a PKCE code challenge from the verifier.
// It uses the S256 method: BASE64URL(SHA256(ASCII(verifier)))
func generateCodeChallenge(verifier string) string {
	h := sha256.New()
	h.Write([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// generateState creates a random value for the state and nonce parameters.
// The value is 16 random bytes encoded as hex (32 characters).
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
