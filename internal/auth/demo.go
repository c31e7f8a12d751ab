package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/al-bashkir/stable-portal/internal/session"
)

// DemoIdentity is the fixed identity of every demo session.
var DemoIdentity = session.Identity{
	Name:    "Demo User",
	Email:   "demo@example.com",
	Subject: "demo-user-id",
}

// DemoAccessToken is the placeholder access token of demo sessions.
const DemoAccessToken = "demo-token"

// Demo signs every session in as DemoIdentity without contacting a provider.
type Demo struct {
	store  session.Store
	logger *slog.Logger
}

// NewDemo creates the demo login flow.
func NewDemo(store session.Store, logger *slog.Logger) *Demo {
	return &Demo{
		store:  store,
		logger: logger,
	}
}

// Begin signs the session in and returns DashboardURL.
func (d *Demo) Begin(ctx context.Context, sessionID string) (string, error) {
	if err := d.SignIn(ctx, sessionID); err != nil {
		return "", err
	}
	return DashboardURL, nil
}

// Complete treats a stray callback as a login.
func (d *Demo) Complete(ctx context.Context, sessionID string, _ CallbackParams) error {
	return d.SignIn(ctx, sessionID)
}

// Logout destroys the session and returns HomeURL.
func (d *Demo) Logout(ctx context.Context, sessionID string) string {
	if sessionID != "" {
		if err := d.store.Destroy(ctx, sessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
			d.logger.Error("failed to destroy session", "error", err)
		}
	}
	return HomeURL
}

// SignIn writes the demo identity and token to the session.
func (d *Demo) SignIn(ctx context.Context, sessionID string) error {
	err := d.store.Update(ctx, sessionID, func(s *session.Session) error {
		s.Login(DemoIdentity, session.TokenSet{AccessToken: DemoAccessToken})
		s.ClearFlow()
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign in demo session: %w", err)
	}
	return nil
}
