package user

import (
	"context"
	"time"
)

// Registry records whether the administrator seat is taken. The first user
// enrolled becomes the administrator, everybody after is a client.
type Registry struct {
	AdminAssigned bool
	Version       int64
}

type RegistryRepository interface {
	Load(ctx context.Context) (*Registry, error)
	Save(ctx context.Context, registry *Registry) error
}

type EnrollParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Now          time.Time
}

func (r *Registry) Enroll(params EnrollParams) (*User, error) {
	role := RoleClient
	if !r.AdminAssigned {
		role = RoleAdministrator
	}
	u, err := NewUser(CreateParams{
		ID:           params.ID,
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: params.PasswordHash,
		Role:         role,
		CreatedAt:    params.Now,
	})
	if err != nil {
		return nil, err
	}
	if role == RoleAdministrator {
		r.AdminAssigned = true
	}
	return u, nil
}
