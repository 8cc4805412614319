package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabarak-welfare/welfare-api/config"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

func testCodec(secret string) *CookieCodec {
	return NewCookieCodec(config.SessionConfig{
		Secret:     secret,
		CookieName: "welfare_session",
	})
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	return r
}

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := testCodec("test-secret")
	sessionID := uuid.New()
	expiresAt := time.Now().Add(time.Hour)

	t.Run("SessionCookie", func(t *testing.T) {
		cookie, err := codec.Encode(sessionID, expiresAt, false)
		require.NoError(t, err)

		assert.Equal(t, "welfare_session", cookie.Name)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
		// Without remember the cookie expires with the browser session.
		assert.True(t, cookie.Expires.IsZero())

		got, err := codec.Decode(requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Equal(t, sessionID, got)
	})

	t.Run("RememberMe", func(t *testing.T) {
		cookie, err := codec.Encode(sessionID, expiresAt, true)
		require.NoError(t, err)

		assert.WithinDuration(t, expiresAt, cookie.Expires, time.Second)

		got, err := codec.Decode(requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Equal(t, sessionID, got)
	})
}

func TestCookieCodecDecodeFailures(t *testing.T) {
	codec := testCodec("test-secret")
	sessionID := uuid.New()

	t.Run("MissingCookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := codec.Decode(r)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := testCodec("other-secret")
		cookie, err := other.Encode(sessionID, time.Now().Add(time.Hour), false)
		require.NoError(t, err)

		_, err = codec.Decode(requestWithCookie(cookie))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("TamperedValue", func(t *testing.T) {
		cookie, err := codec.Encode(sessionID, time.Now().Add(time.Hour), false)
		require.NoError(t, err)
		cookie.Value += "x"

		_, err = codec.Decode(requestWithCookie(cookie))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("Garbage", func(t *testing.T) {
		cookie := &http.Cookie{Name: "welfare_session", Value: "not-a-token"}
		_, err := codec.Decode(requestWithCookie(cookie))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		cookie, err := codec.Encode(sessionID, time.Now().Add(-time.Hour), false)
		require.NoError(t, err)

		_, err = codec.Decode(requestWithCookie(cookie))
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestCookieCodecClear(t *testing.T) {
	codec := testCodec("test-secret")
	cleared := codec.Clear()

	assert.Equal(t, "welfare_session", cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.True(t, cleared.HttpOnly)
}
