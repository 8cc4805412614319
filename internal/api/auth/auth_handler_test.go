package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kabarak-welfare/welfare-api/app/observability/metrics"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, name, email, username, password string) (*types.Session, error) {
	args := m.Called(ctx, name, email, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Session), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*types.Session, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Session), args.Error(1)
}

func (m *MockAuthService) ResolveSession(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func newTestHandler(service AuthService) (*AuthHandler, *CookieCodec) {
	codec := testCodec("handler-test-secret")
	return NewAuthHandler(service, codec, testLogger()), codec
}

func formRequest(method, target string, form url.Values) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignUpHandler(t *testing.T) {
	t.Run("FormSuccess", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, codec := newTestHandler(mockService)

		session := &types.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(720 * time.Hour)}
		mockService.On("SignUp", mock.Anything, "Jane Doe", "jane@example.com", "jane", "password123").
			Return(session, nil).Once()

		form := url.Values{
			"name":     {"Jane Doe"},
			"email":    {"jane@example.com"},
			"username": {"jane"},
			"password": {"password123"},
		}
		rec := httptest.NewRecorder()
		handler.SignUp(rec, formRequest(http.MethodPost, "/signup", form))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		cookie := findCookie(t, rec, "welfare_session")
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		// No remember box ticked, so no Expires attribute.
		assert.True(t, cookie.Expires.IsZero())

		got, err := codec.Decode(requestWithCookie(cookie))
		require.NoError(t, err)
		assert.Equal(t, session.ID, got)
		mockService.AssertExpectations(t)
	})

	t.Run("JSONSuccess", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		session := &types.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
		mockService.On("SignUp", mock.Anything, "Jane Doe", "jane@example.com", "jane", "password123").
			Return(session, nil).Once()

		body := `{"name":"Jane Doe","email":"jane@example.com","username":"jane","password":"password123","remember":true}`
		r := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.SignUp(rec, r)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		cookie := findCookie(t, rec, "welfare_session")
		require.NotNil(t, cookie)
		assert.WithinDuration(t, session.ExpiresAt, cookie.Expires, time.Second)
		mockService.AssertExpectations(t)
	})

	t.Run("Duplicate", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		mockService.On("SignUp", mock.Anything, "Jane Doe", "taken@example.com", "jane", "password123").
			Return(nil, types.ErrDuplicateCredential).Once()

		form := url.Values{
			"name":     {"Jane Doe"},
			"email":    {"taken@example.com"},
			"username": {"jane"},
			"password": {"password123"},
		}
		rec := httptest.NewRecorder()
		handler.SignUp(rec, formRequest(http.MethodPost, "/signup", form))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		// The message never names the colliding field.
		assert.Contains(t, rec.Body.String(), "email or username unavailable")
		assert.NotContains(t, rec.Body.String(), "taken@example.com")
		assert.Nil(t, findCookie(t, rec, "welfare_session"))
		mockService.AssertExpectations(t)
	})

	t.Run("StoreUnavailable", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		mockService.On("SignUp", mock.Anything, "Jane Doe", "jane@example.com", "jane", "password123").
			Return(nil, types.ErrStoreUnavailable).Once()

		form := url.Values{
			"name":     {"Jane Doe"},
			"email":    {"jane@example.com"},
			"username": {"jane"},
			"password": {"password123"},
		}
		rec := httptest.NewRecorder()
		handler.SignUp(rec, formRequest(http.MethodPost, "/signup", form))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("RememberMe", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		session := &types.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(720 * time.Hour)}
		mockService.On("Login", mock.Anything, "jane", "password123").Return(session, nil).Once()

		form := url.Values{
			"identifier": {"jane"},
			"password":   {"password123"},
			"remember":   {"on"},
		}
		rec := httptest.NewRecorder()
		handler.Login(rec, formRequest(http.MethodPost, "/login", form))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		cookie := findCookie(t, rec, "welfare_session")
		require.NotNil(t, cookie)
		assert.WithinDuration(t, session.ExpiresAt, cookie.Expires, time.Second)
		mockService.AssertExpectations(t)
	})

	t.Run("EmailFieldFallback", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		session := &types.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
		mockService.On("Login", mock.Anything, "jane@example.com", "password123").Return(session, nil).Once()

		form := url.Values{
			"email":    {"jane@example.com"},
			"password": {"password123"},
		}
		rec := httptest.NewRecorder()
		handler.Login(rec, formRequest(http.MethodPost, "/login", form))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		mockService.On("Login", mock.Anything, "jane", "wrong").
			Return(nil, types.ErrInvalidCredentials).Once()

		form := url.Values{
			"identifier": {"jane"},
			"password":   {"wrong"},
		}
		rec := httptest.NewRecorder()
		handler.Login(rec, formRequest(http.MethodPost, "/login", form))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid credentials")
		assert.Nil(t, findCookie(t, rec, "welfare_session"))
		mockService.AssertExpectations(t)
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Run("WithSession", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, codec := newTestHandler(mockService)

		sessionID := uuid.New()
		mockService.On("Logout", mock.Anything, sessionID).Return(nil).Once()

		cookie, err := codec.Encode(sessionID, time.Now().Add(time.Hour), true)
		require.NoError(t, err)
		r := formRequest(http.MethodPost, "/logout", url.Values{})
		r.AddCookie(cookie)

		rec := httptest.NewRecorder()
		handler.Logout(rec, r)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		cleared := findCookie(t, rec, "welfare_session")
		require.NotNil(t, cleared)
		assert.Equal(t, -1, cleared.MaxAge)
		mockService.AssertExpectations(t)
	})

	t.Run("NoCookie", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		rec := httptest.NewRecorder()
		handler.Logout(rec, formRequest(http.MethodPost, "/logout", url.Values{}))

		// Still clears and redirects; no service call without a session.
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		cleared := findCookie(t, rec, "welfare_session")
		require.NotNil(t, cleared)
		assert.Equal(t, -1, cleared.MaxAge)
		mockService.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	})

	t.Run("GetRedirectsHome", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler, _ := newTestHandler(mockService)

		rec := httptest.NewRecorder()
		handler.LogoutRedirect(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		mockService.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	})
}
