package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kabarak-welfare/welfare-api/config"
	"github.com/kabarak-welfare/welfare-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService is the auth core: sign-up, login, session resolution,
// logout and the admin check. No other component hashes passwords or
// touches session rows.
type AuthService interface {
	SignUp(ctx context.Context, name, email, username, password string) (*types.Session, error)
	Login(ctx context.Context, identifier, password string) (*types.Session, error)
	ResolveSession(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
}

type AuthServiceImpl struct {
	logger     *slog.Logger
	repo       AuthRepo
	sessionTTL time.Duration
	pwMinLen   int
}

func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:     logger,
		repo:       repo,
		sessionTTL: cfg.Session.TTL,
		pwMinLen:   cfg.Auth.PasswordMinLength,
	}
}

// SignUp hashes the password, creates the user and issues a session in
// one flow. A collision on email or username surfaces the generic
// duplicate-credential error.
func (s *AuthServiceImpl) SignUp(ctx context.Context, name, email, username, password string) (*types.Session, error) {
	l := s.logger.With(slog.String("method", "SignUp"))

	if err := s.validateSignUp(name, email, username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.repo.CreateUser(ctx, name, email, username, string(hash))
	if err != nil {
		return nil, err
	}

	session, err := s.repo.CreateSession(ctx, userID, time.Now().Add(s.sessionTTL))
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Sign-up successful", slog.String("userID", userID.String()))
	return session, nil
}

// Login authenticates by email or username and issues a new session.
// The identifier is classified once: containing "@" means email lookup,
// anything else means username lookup, with no fallback to the other
// field. "No such account" and "wrong password" are indistinguishable.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string) (*types.Session, error) {
	l := s.logger.With(slog.String("method", "Login"))

	var user *types.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.repo.GetUserByEmail(ctx, identifier)
	} else {
		user, err = s.repo.GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.DebugContext(ctx, "Login for unknown identifier")
			return nil, types.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.DebugContext(ctx, "Login password mismatch", slog.String("userID", user.ID.String()))
		return nil, types.ErrInvalidCredentials
	}

	// Concurrent logins each get their own row; there is no
	// single-session-per-user constraint.
	session, err := s.repo.CreateSession(ctx, user.ID, time.Now().Add(s.sessionTTL))
	if err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID.String()))
	return session, nil
}

// ResolveSession maps a session identifier to its owning user. A missing
// row and an expired row both report ErrUnauthenticated: rows are never
// purged automatically, so the expiry check here is what retires them.
func (s *AuthServiceImpl) ResolveSession(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return uuid.Nil, types.ErrUnauthenticated
		}
		return uuid.Nil, err
	}
	if session.Expired(time.Now()) {
		return uuid.Nil, types.ErrUnauthenticated
	}
	return session.UserID, nil
}

// IsAdmin reports whether the stored role is admin. A nonexistent user
// id answers false, never an error: the gate fails closed.
func (s *AuthServiceImpl) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	role, err := s.repo.GetUserRole(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return role.IsAdmin(), nil
}

// Logout destroys the session row. Deleting an already-absent row is
// not an error.
func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *AuthServiceImpl) validateSignUp(name, email, username, password string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("name is required: %w", types.ErrBadRequest)
	case !strings.Contains(email, "@") || len(email) < 3 || len(email) > 254:
		return fmt.Errorf("a valid email address is required: %w", types.ErrBadRequest)
	case strings.TrimSpace(username) == "" || strings.Contains(username, "@") || len(username) > 64:
		// "@" is reserved as the login disambiguator, so usernames must
		// never contain it.
		return fmt.Errorf("a valid username is required: %w", types.ErrBadRequest)
	case len(password) < s.pwMinLen:
		return fmt.Errorf("password must be at least %d characters: %w", s.pwMinLen, types.ErrBadRequest)
	}
	return nil
}
