package httpserver

import (
	"context"
	"net/http"

	"github.com/al-bashkir/stable-portal/internal/session"
)

type contextKey int

const (
	sessionKey contextKey = iota
	requestIDKey
)

func withSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// sessionFrom returns the request's session, or nil when it has none.
func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ensureSession returns the request's session ID, creating a session and
// setting its cookie when there is none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if sess := sessionFrom(r.Context()); sess != nil {
		return sess.ID, nil
	}

	sess, err := s.store.Create(r.Context())
	if err != nil {
		return "", err
	}
	s.cookies.Write(w, sess.ID)

	return sess.ID, nil
}

// accessToken is the bearer credential of an authenticated request.
func accessToken(r *http.Request) string {
	sess := sessionFrom(r.Context())
	if sess == nil || sess.Tokens == nil {
		return ""
	}
	return sess.Tokens.AccessToken
}
