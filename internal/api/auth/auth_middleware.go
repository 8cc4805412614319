package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kabarak-welfare/welfare-api/app/observability/metrics"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

type contextKey string

const UserIDKey contextKey = "userID"

// GetUserIDFromContext returns the user id placed by RequireAuth.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// RequireAuth resolves the session cookie to a user id and stores it in
// the request context. Requests with no resolvable session are
// redirected to the login page, never shown an error page. The session
// is re-resolved on every request; nothing is cached across requests.
func RequireAuth(service AuthService, cookies *CookieCodec, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "RequireAuth"))

			sessionID, err := cookies.Decode(r)
			if err != nil {
				// No cookie, no store lookup.
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			userID, err := service.ResolveSession(ctx, sessionID)

			outcome := "success"
			if err != nil {
				outcome = "failure"
			}
			metrics.Get().SessionResolvesTotal.Add(ctx, 1,
				metric.WithAttributes(attribute.String("outcome", outcome)))

			if err != nil {
				if errors.Is(err, types.ErrUnauthenticated) {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
				l.ErrorContext(ctx, "Session resolution failed", slog.Any("error", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx = context.WithValue(ctx, UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates admin-scoped routes. It runs after RequireAuth:
// an authenticated non-admin is sent back to the home page. The role is
// fetched from the credential store on every request.
func RequireAdmin(service AuthService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "RequireAdmin"))

			userID, ok := GetUserIDFromContext(ctx)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			isAdmin, err := service.IsAdmin(ctx, userID)
			if err != nil {
				l.ErrorContext(ctx, "Admin check failed", slog.Any("error", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !isAdmin {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
