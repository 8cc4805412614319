package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kabarak-welfare/welfare-api/config"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

// CookieCodec signs a session identifier into an httpOnly cookie and
// reverses the operation. The cookie carries nothing but the session id;
// everything else lives in the session store.
type CookieCodec struct {
	name   string
	secret []byte
	secure bool
}

func NewCookieCodec(cfg config.SessionConfig) *CookieCodec {
	name := cfg.CookieName
	if name == "" {
		name = "welfare_session"
	}
	return &CookieCodec{
		name:   name,
		secret: []byte(cfg.Secret),
		secure: cfg.CookieSecure,
	}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Encode signs sessionID into a cookie. With remember set the cookie is
// persistent until expiresAt; otherwise it lives for the browser session
// only, while the store row keeps its normal expiration.
func (c *CookieCodec) Encode(sessionID uuid.UUID, expiresAt time.Time, remember bool) (*http.Cookie, error) {
	claims := sessionClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = expiresAt
	}
	return cookie, nil
}

// Decode extracts and verifies the session identifier from the request's
// cookie. Any failure (missing cookie, bad signature, malformed id)
// reports ErrUnauthenticated; callers never learn which.
func (c *CookieCodec) Decode(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return uuid.Nil, types.ErrUnauthenticated
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, types.ErrUnauthenticated
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, types.ErrUnauthenticated
	}
	return sessionID, nil
}

// Clear returns a cookie that removes the session cookie on the client.
func (c *CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
