package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"depositrent/internal/app/middleware"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/uow"
	"depositrent/internal/clock"
	domainauth "depositrent/internal/domain/auth"
	domainuser "depositrent/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrSessionExpired     = errors.New("auth: session expired")
)

// registryLockKey serializes registrations so only one user can take the
// administrator seat.
const registryLockKey = "user-registry"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	UoWFactory uow.UoWFactory
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	Locker     middleware.Locker
	Clock      clock.Clock
	SessionTTL time.Duration
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

// Register creates a user. The very first user becomes the administrator,
// everyone after is a client.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, domainuser.ErrNameRequired
	}
	if utf8.RuneCountInString(params.Password) < 8 {
		return nil, ErrPasswordTooShort
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	if s.Locker != nil {
		unlock, err := s.Locker.Lock(ctx, registryLockKey)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	if _, err := unit.Users().ByEmail(execCtx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	registry, err := unit.Registry().Load(execCtx)
	if err != nil {
		return nil, err
	}
	user, err := registry.Enroll(domainuser.EnrollParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         params.Name,
		PasswordHash: hash,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Users().Save(execCtx, user); err != nil {
		return nil, err
	}
	if err := unit.Registry().Save(execCtx, registry); err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role.String())
	return &AuthResult{User: user, Session: session}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userBy(ctx, func(ctx context.Context, repo domainuser.Repository) (*domainuser.User, error) {
		return repo.ByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user authenticated", "user_id", user.ID)
	return &AuthResult{User: user, Session: session}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.Sessions.Delete(ctx, domainauth.Token(token))
}

// ResolveToken maps a bearer token to its live session and user. Expired
// sessions are removed on sight.
func (s *Service) ResolveToken(ctx context.Context, token string) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, ErrSessionExpired
	}
	user, err := s.userBy(ctx, func(ctx context.Context, repo domainuser.Repository) (*domainuser.User, error) {
		return repo.ByID(ctx, session.UserID)
	})
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &AuthResult{User: user, Session: session}, nil
}

// Actor is the caller identity handed to commands and queries.
func (r *AuthResult) Actor() policies.Actor {
	if r == nil || r.User == nil {
		return policies.Actor{}
	}
	return policies.Actor{UserID: string(r.User.ID), Role: r.User.Role}
}

func (s *Service) userBy(ctx context.Context, find func(context.Context, domainuser.Repository) (*domainuser.User, error)) (*domainuser.User, error) {
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	defer func() { _ = unit.Rollback(execCtx) }()
	return find(execCtx, unit.Users())
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (*domainauth.Session, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: user.ID,
		Role:   user.Role,
		TTL:    s.sessionTTL(),
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.UoWFactory == nil:
		return errors.New("auth: unit of work factory required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
