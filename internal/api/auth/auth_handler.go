package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kabarak-welfare/welfare-api/app/observability/metrics"
	"github.com/kabarak-welfare/welfare-api/internal/api"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

type AuthHandler struct {
	service AuthService
	cookies *CookieCodec
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, cookies *CookieCodec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
		logger:  logger,
	}
}

// SignUp handles POST /signup. On success it issues the session cookie
// and redirects home; validation and duplicate failures come back as
// form-level messages.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "SignUp"))

	req, err := decodeSignUpRequest(w, r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := h.service.SignUp(ctx, req.Name, req.Email, req.Username, req.Password)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.Get().SignupRequestsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))

	if err != nil {
		switch {
		case errors.Is(err, types.ErrDuplicateCredential):
			// Same wording whichever field collided.
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrDuplicateCredential.Error())
		case errors.Is(err, types.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrStoreUnavailable):
			l.ErrorContext(ctx, "Sign-up failed, store unavailable", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
		default:
			l.ErrorContext(ctx, "Sign-up failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
		}
		return
	}

	h.issueCookieAndRedirect(w, r, session, req.Remember)
}

// Login handles POST /login. The identifier field accepts an email or a
// username; invalid credentials and unknown accounts are one and the
// same to the caller.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))
	start := time.Now()

	req, err := decodeLoginRequest(w, r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := h.service.Login(ctx, req.Identifier, req.Password)

	m := metrics.Get()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.LoginRequestsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
	m.LoginDurationSeconds.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidCredentials):
			api.ErrorResponse(w, r, http.StatusBadRequest, types.ErrInvalidCredentials.Error())
		case errors.Is(err, types.ErrStoreUnavailable):
			l.ErrorContext(ctx, "Login failed, store unavailable", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
		default:
			l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
		}
		return
	}

	h.issueCookieAndRedirect(w, r, session, req.Remember)
}

// Logout handles POST /logout: destroy the session row if the cookie
// resolves, clear the cookie, and go home regardless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Logout"))

	if sessionID, err := h.cookies.Decode(r); err == nil {
		if err := h.service.Logout(ctx, sessionID); err != nil {
			// The cookie is cleared either way; the row will be refused
			// at resolution once it expires.
			l.ErrorContext(ctx, "Failed to destroy session", slog.Any("error", err))
		}
	}

	http.SetCookie(w, h.cookies.Clear())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutRedirect handles GET /logout: navigating there directly just
// goes home, with no side effect.
func (h *AuthHandler) LogoutRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) issueCookieAndRedirect(w http.ResponseWriter, r *http.Request, session *types.Session, remember bool) {
	cookie, err := h.cookies.Encode(session.ID, session.ExpiresAt, remember)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode session cookie", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// decodeSignUpRequest accepts form-encoded bodies from the web frontend
// and JSON from API clients.
func decodeSignUpRequest(w http.ResponseWriter, r *http.Request) (SignUpRequest, error) {
	if isJSONRequest(r) {
		var req SignUpRequest
		err := api.DecodeJSONBody(w, r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return SignUpRequest{}, err
	}
	return SignUpRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Remember: parseCheckbox(r.PostFormValue("remember")),
	}, nil
}

func decodeLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	if isJSONRequest(r) {
		var req LoginRequest
		err := api.DecodeJSONBody(w, r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return LoginRequest{}, err
	}
	identifier := r.PostFormValue("identifier")
	if identifier == "" {
		// The login form labels the field "email" but accepts either.
		identifier = r.PostFormValue("email")
	}
	return LoginRequest{
		Identifier: identifier,
		Password:   r.PostFormValue("password"),
		Remember:   parseCheckbox(r.PostFormValue("remember")),
	}, nil
}

func parseCheckbox(v string) bool {
	return v == "on" || v == "true" || v == "1"
}
