package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kabarak-welfare/welfare-api/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	codec := testCodec("middleware-test-secret")

	t.Run("NoCookie", func(t *testing.T) {
		mockService := new(MockAuthService)
		var called bool
		mw := RequireAuth(mockService, codec, testLogger())(okHandler(t, &called))

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/campaigns", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.False(t, called)
		mockService.AssertNotCalled(t, "ResolveSession", mock.Anything, mock.Anything)
	})

	t.Run("ValidSession", func(t *testing.T) {
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		userID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).Return(userID, nil).Once()

		var gotUserID uuid.UUID
		var ok bool
		mw := RequireAuth(mockService, codec, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, ok = GetUserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		cookie, err := codec.Encode(sessionID, time.Now().Add(time.Hour), true)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/admin/campaigns", nil)
		r.AddCookie(cookie)

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, ok)
		assert.Equal(t, userID, gotUserID)
		mockService.AssertExpectations(t)
	})

	t.Run("StaleSession", func(t *testing.T) {
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).
			Return(uuid.Nil, types.ErrUnauthenticated).Once()

		var called bool
		mw := RequireAuth(mockService, codec, testLogger())(okHandler(t, &called))

		cookie, err := codec.Encode(sessionID, time.Now().Add(time.Hour), false)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/admin/campaigns", nil)
		r.AddCookie(cookie)

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.False(t, called)
		mockService.AssertExpectations(t)
	})

	t.Run("StoreUnavailable", func(t *testing.T) {
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).
			Return(uuid.Nil, types.ErrStoreUnavailable).Once()

		var called bool
		mw := RequireAuth(mockService, codec, testLogger())(okHandler(t, &called))

		cookie, err := codec.Encode(sessionID, time.Now().Add(time.Hour), false)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/admin/campaigns", nil)
		r.AddCookie(cookie)

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, r)

		// A broken store is a server error, not a login redirect.
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, called)
		mockService.AssertExpectations(t)
	})
}

func TestRequireAdmin(t *testing.T) {
	codec := testCodec("middleware-test-secret")

	// runGate sends a request through RequireAuth then RequireAdmin,
	// the way the router stacks them.
	runGate := func(t *testing.T, mockService *MockAuthService, sessionID uuid.UUID, called *bool) *httptest.ResponseRecorder {
		t.Helper()
		gate := RequireAuth(mockService, codec, testLogger())(
			RequireAdmin(mockService, testLogger())(okHandler(t, called)))

		cookie, err := codec.Encode(sessionID, time.Now().Add(time.Hour), true)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/admin/campaigns", nil)
		r.AddCookie(cookie)

		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, r)
		return rec
	}

	t.Run("Admin", func(t *testing.T) {
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		userID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).Return(userID, nil).Once()
		mockService.On("IsAdmin", mock.Anything, userID).Return(true, nil).Once()

		var called bool
		rec := runGate(t, mockService, sessionID, &called)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, called)
		mockService.AssertExpectations(t)
	})

	t.Run("NonAdmin", func(t *testing.T) {
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		userID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).Return(userID, nil).Once()
		mockService.On("IsAdmin", mock.Anything, userID).Return(false, nil).Once()

		var called bool
		rec := runGate(t, mockService, sessionID, &called)

		// Authenticated but not authorized: back to the home page.
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		assert.False(t, called)
		mockService.AssertExpectations(t)
	})

	t.Run("RoleCheckError", func(t *testing.T) {
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		userID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).Return(userID, nil).Once()
		mockService.On("IsAdmin", mock.Anything, userID).Return(false, types.ErrStoreUnavailable).Once()

		var called bool
		rec := runGate(t, mockService, sessionID, &called)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, called)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingContext", func(t *testing.T) {
		mockService := new(MockAuthService)
		var called bool
		// RequireAdmin reached without RequireAuth in front.
		mw := RequireAdmin(mockService, testLogger())(okHandler(t, &called))

		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/campaigns", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.False(t, called)
		mockService.AssertNotCalled(t, "IsAdmin", mock.Anything, mock.Anything)
	})

	t.Run("PromotedMidSession", func(t *testing.T) {
		// Role changes take effect on the next request; the same
		// session flips from redirect to allowed.
		mockService := new(MockAuthService)
		sessionID := uuid.New()
		userID := uuid.New()
		mockService.On("ResolveSession", mock.Anything, sessionID).Return(userID, nil).Twice()
		mockService.On("IsAdmin", mock.Anything, userID).Return(false, nil).Once()
		mockService.On("IsAdmin", mock.Anything, userID).Return(true, nil).Once()

		var called bool
		rec := runGate(t, mockService, sessionID, &called)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.False(t, called)

		rec = runGate(t, mockService, sessionID, &called)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, called)
		mockService.AssertExpectations(t)
	})
}
