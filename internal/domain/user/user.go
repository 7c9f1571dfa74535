package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

// Role is closed: a user is either a client or the administrator.
type Role int

const (
	RoleClient Role = iota + 1
	RoleAdministrator
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleAdministrator:
		return "administrator"
	default:
		return "unknown"
	}
}

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdministrator
}

func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "client":
		return RoleClient, nil
	case "administrator":
		return RoleAdministrator, nil
	}
	return 0, ErrInvalidRole
}

type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !params.Role.Valid() {
		return nil, ErrInvalidRole
	}
	now := params.CreatedAt.UTC()
	return &User{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsAdministrator() bool {
	return u.Role == RoleAdministrator
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
