package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kabarak-welfare/welfare-api/app/observability/metrics"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the persistence boundary of the auth core: point lookups
// and inserts against the credential and session stores.
type AuthRepo interface {
	CreateUser(ctx context.Context, name, email, username, passwordHash string) (uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	GetUserRole(ctx context.Context, userID uuid.UUID) (types.Role, error)
	CreateSession(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*types.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*types.Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

// PGX is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PGX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresAuthRepo struct {
	logger  *slog.Logger
	db      PGX
	timeout time.Duration
}

func NewPostgresAuthRepo(db PGX, timeout time.Duration, logger *slog.Logger) *PostgresAuthRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresAuthRepo{
		logger:  logger,
		db:      db,
		timeout: timeout,
	}
}

// withTimeout bounds a single store round trip.
func (r *PostgresAuthRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// mapStoreErr converts a timed-out or unreachable-store error into the
// store-unavailable sentinel so the request fails instead of hanging.
func mapStoreErr(ctx context.Context, op string, err error) error {
	metrics.Get().DbQueryErrorsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)))
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: store timed out: %w", op, types.ErrStoreUnavailable)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s: store unreachable: %w", op, types.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// The store is the serialization point for concurrent sign-ups; the race
// loser surfaces a duplicate-credential error here.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, name, email, username, passwordHash string) (uuid.UUID, error) {
	l := r.logger.With(slog.String("method", "CreateUser"))
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var userID uuid.UUID
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (name, email, username, password_hash)
         VALUES ($1, $2, $3, $4)
         RETURNING id`,
		name, email, username, passwordHash).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			// Generic by design: the caller must not learn which of
			// email/username collided.
			l.WarnContext(ctx, "Sign-up collided with existing credential")
			return uuid.Nil, types.ErrDuplicateCredential
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return uuid.Nil, mapStoreErr(ctx, "create user", err)
	}

	l.InfoContext(ctx, "User created", slog.String("userID", userID.String()))
	return userID, nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.getUserBy(ctx, "email", email)
}

func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return r.getUserBy(ctx, "username", username)
}

func (r *PostgresAuthRepo) getUserBy(ctx context.Context, column, value string) (*types.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT id, name, email, username, password_hash, role, created_at, updated_at
         FROM users WHERE %s = $1`, column)

	var user types.User
	err := r.db.QueryRow(ctx, query, value).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to fetch user", slog.String("column", column), slog.Any("error", err))
		return nil, mapStoreErr(ctx, "get user", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserRole(ctx context.Context, userID uuid.UUID) (types.Role, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var role types.Role
	err := r.db.QueryRow(ctx,
		`SELECT role FROM users WHERE id = $1`,
		userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to fetch user role", slog.Any("error", err))
		return "", mapStoreErr(ctx, "get user role", err)
	}
	return role, nil
}

func (r *PostgresAuthRepo) CreateSession(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*types.Session, error) {
	l := r.logger.With(slog.String("method", "CreateSession"), slog.String("userID", userID.String()))
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	session := types.Session{
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO sessions (user_id, expires_at)
         VALUES ($1, $2)
         RETURNING id, created_at, updated_at`,
		userID, expiresAt).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert session", slog.Any("error", err))
		return nil, mapStoreErr(ctx, "create session", err)
	}

	l.DebugContext(ctx, "Session created", slog.String("sessionID", session.ID.String()))
	return &session, nil
}

func (r *PostgresAuthRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*types.Session, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var session types.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, expires_at, created_at, updated_at
         FROM sessions WHERE id = $1`,
		sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to fetch session", slog.Any("error", err))
		return nil, mapStoreErr(ctx, "get session", err)
	}
	return &session, nil
}

func (r *PostgresAuthRepo) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	l := r.logger.With(slog.String("method", "DeleteSession"), slog.String("sessionID", sessionID.String()))
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		sessionID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete session", slog.Any("error", err))
		return mapStoreErr(ctx, "delete session", err)
	}
	if tag.RowsAffected() == 0 {
		// Already gone; logout stays idempotent.
		l.DebugContext(ctx, "No session row to delete")
	}
	return nil
}
