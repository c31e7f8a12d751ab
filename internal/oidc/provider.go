// Package oidc implements the OpenID Connect (OIDC) client side of the
// Authorization Code flow with PKCE.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/al-bashkir/stable-portal/internal/config"
)

// DefaultHTTPTimeout bounds every call to the identity provider.
const DefaultHTTPTimeout = 30 * time.Second

// ErrNotReady is returned when provider discovery has not completed.
var ErrNotReady = errors.New("identity provider not discovered")

// ProviderMetadata is the subset of the discovery document this service uses.
type ProviderMetadata struct {
	Issuer                string
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
	EndSessionEndpoint    string
}

// Provider wraps the OIDC provider and OAuth2 configuration.
// It is built once by Discover and is read-only afterwards, so it is safe
// for concurrent use.
type Provider struct {
	oidcProvider          *oidc.Provider
	oauth2Config          *oauth2.Config
	verifier              *oidc.IDTokenVerifier
	metadata              ProviderMetadata
	postLogoutRedirectURI string
	httpClient            *http.Client
}

// Discover creates a new OIDC provider using the specified configuration.
// It performs OIDC discovery via /.well-known/openid-configuration
// and sets up the OAuth2 configuration and ID token verifier.
func Discover(ctx context.Context, cfg *config.OIDCConfig) (*Provider, error) {
	httpClient := &http.Client{Timeout: DefaultHTTPTimeout}

	// Discover OIDC configuration from issuer
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	// go-oidc does not expose the end-session endpoint
	var extra struct {
		UserInfoEndpoint   string `json:"userinfo_endpoint"`
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		return nil, fmt.Errorf("failed to parse discovery document: %w", err)
	}

	endpoint := provider.Endpoint()

	// Create OAuth2 config
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     endpoint,
		Scopes:       cfg.Scopes,
	}

	// Create ID token verifier
	// This will verify the token signature, issuer, audience, and expiry
	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	return &Provider{
		oidcProvider: provider,
		oauth2Config: oauth2Config,
		verifier:     verifier,
		metadata: ProviderMetadata{
			Issuer:                cfg.Issuer,
			AuthorizationEndpoint: endpoint.AuthURL,
			TokenEndpoint:         endpoint.TokenURL,
			UserInfoEndpoint:      extra.UserInfoEndpoint,
			EndSessionEndpoint:    extra.EndSessionEndpoint,
		},
		postLogoutRedirectURI: cfg.PostLogoutRedirectURI,
		httpClient:            httpClient,
	}, nil
}

// Metadata returns the discovered provider endpoints.
func (p *Provider) Metadata() ProviderMetadata {
	return p.metadata
}

// clientContext attaches the provider's HTTP client so both go-oidc and
// x/oauth2 use its timeout.
func (p *Provider) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, p.httpClient)
}

// Ready holds the process-wide provider once discovery has succeeded.
// Until Set is called, Provider fails fast with ErrNotReady.
type Ready struct {
	p atomic.Pointer[Provider]
}

// Set publishes the discovered provider. Only the first call has an effect.
func (r *Ready) Set(p *Provider) {
	r.p.CompareAndSwap(nil, p)
}

// Provider returns the discovered provider or ErrNotReady.
func (r *Ready) Provider() (*Provider, error) {
	p := r.p.Load()
	if p == nil {
		return nil, ErrNotReady
	}
	return p, nil
}
