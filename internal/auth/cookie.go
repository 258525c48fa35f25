package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

// SessionCookieName is the browser cookie carrying the session key.
const SessionCookieName = "ccap_session"

// CookieCodec signs and encrypts the session-key cookie. The cookie never
// carries the bearer token or any identity data, only the opaque key into
// the session store.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

// NewCookieCodec derives stable signing and encryption keys from the
// configured secret, so cookies survive process restarts.
func NewCookieCodec(secret string, maxAge time.Duration, secure bool) (*CookieCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("cookie secret must not be empty")
	}

	hashKey, err := deriveKey(secret, "ccapd cookie hash v1")
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "ccapd cookie block v1")
	if err != nil {
		return nil, err
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))

	return &CookieCodec{sc: sc, maxAge: maxAge, secure: secure}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving cookie key: %w", err)
	}
	return key, nil
}

// Read extracts the session key from the request, or "" when the cookie is
// absent, expired or tampered with.
func (c *CookieCodec) Read(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	var key string
	if err := c.sc.Decode(SessionCookieName, cookie.Value, &key); err != nil {
		return ""
	}
	return key
}

// Write sets the session-key cookie on the response.
func (c *CookieCodec) Write(w http.ResponseWriter, key string) error {
	encoded, err := c.sc.Encode(SessionCookieName, key)
	if err != nil {
		return fmt.Errorf("encoding session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session-key cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
