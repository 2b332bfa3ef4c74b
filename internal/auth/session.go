package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the single cookie the server uses to recognise a
// returning client.
const SessionCookieName = "session"

// Session is the per-client identity carried in the signed cookie.
//
// The payload is exactly {userId}. A UserID of 0 is the sentinel for "no
// identity" — the store never assigns 0 as a real user ID, so the zero
// value of Session is a valid anonymous session.
//
// Sessions live entirely client-side: the server reconstructs one from the
// cookie on every request and never persists it.
type Session struct {
	UserID int64 `json:"userId"`
}

// Establish records a login or registration: the session now identifies
// the given user.
func (s *Session) Establish(userID int64) {
	s.UserID = userID
}

// Clear records a sign-out: the session identifies nobody.
func (s *Session) Clear() {
	s.UserID = 0
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

// SessionCodec signs sessions into cookie values and verifies them back.
//
// The cookie value is a JWT signed with HMAC-SHA256 using a server-side
// secret. The signature makes the payload tamper-evident: a client can
// read its own userId but cannot change it without the secret. There is no
// server-side session table — the cookie IS the session.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionCodec creates a SessionCodec with the given signing secret.
// The secret should be at least 32 bytes of random data in production
// (e.g. SESSION_SECRET=$(openssl rand -hex 32)); anything under 16
// characters is rejected outright.
//
// ttl is how long an issued cookie remains valid. secure controls the
// cookie's Secure attribute (true behind HTTPS).
func NewSessionCodec(secret string, ttl time.Duration, secure bool) (*SessionCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionCodec{secret: []byte(secret), ttl: ttl, secure: secure}, nil
}

// sessionClaims is the JWT payload: our userId plus the registered claims
// (issuer, issued-at, expiry) the library validates for us.
type sessionClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Encode signs a session into a cookie value.
func (c *SessionCodec) Encode(s Session) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: s.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			Issuer:    "carvalue",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Decode verifies a cookie value and returns the session it carries.
//
// NEVER ERRORS: any failure — bad signature, expired token, wrong issuer,
// unparseable payload, algorithm mismatch — yields the anonymous session.
// A forged or stale cookie must look exactly like no cookie at all; it is
// not a reason to fail the request.
func (c *SessionCodec) Decode(value string) Session {
	token, err := jwt.ParseWithClaims(
		value,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("carvalue"),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Session{}
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.UserID <= 0 {
		return Session{}
	}

	return Session{UserID: claims.UserID}
}

// IssueCookie signs the session and sets it on the response. Handlers call
// this whenever session state changed (login, registration).
//
// The cookie is HttpOnly (JavaScript can't read it — XSS protection) and
// SameSite=Lax (not sent on cross-site POSTs — CSRF protection).
func (c *SessionCodec) IssueCookie(w http.ResponseWriter, s Session) error {
	value, err := c.Encode(s)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie tells the browser to delete the session cookie (sign-out).
// The signed value it held stays technically valid until expiry, but
// without the cookie the browser can no longer present it.
func (c *SessionCodec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
