package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
)

// CookieName is the name of the session cookie.
const CookieName = "sid"

// CookieCodec carries session IDs in a signed, HTTP-only cookie.
// The cookie value is "<id>.<base64url(HMAC-SHA256(secret, id))>".
type CookieCodec struct {
	secret []byte
	secure bool
}

// NewCookieCodec creates a codec signing with secret.
// secure sets the Secure attribute and should be enabled behind HTTPS.
func NewCookieCodec(secret []byte, secure bool) *CookieCodec {
	return &CookieCodec{
		secret: secret,
		secure: secure,
	}
}

// Read returns the session ID carried by the request, if the cookie is
// present and its signature verifies.
func (c *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	return c.decode(cookie.Value)
}

// Write sets the session cookie for id.
func (c *CookieCodec) Write(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    c.encode(id),
		Path:     "/",
		MaxAge:   int(DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the client.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *CookieCodec) encode(id string) string {
	return id + "." + c.sign(id)
}

func (c *CookieCodec) decode(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(id))) {
		return "", false
	}
	return id, true
}

func (c *CookieCodec) sign(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
