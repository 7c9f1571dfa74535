package policies

import (
	"context"
	"errors"

	domainuser "depositrent/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("policies: authentication required")
	ErrForbidden       = errors.New("policies: administrator role required")
)

// Actor is the caller on whose behalf a command or query runs.
type Actor struct {
	UserID string
	Role   domainuser.Role
}

func (a Actor) Authenticated() bool {
	return a.UserID != "" && a.Role.Valid()
}

func (a Actor) IsAdministrator() bool {
	return a.Authenticated() && a.Role == domainuser.RoleAdministrator
}

// Attributed messages name their caller.
type Attributed interface {
	Caller() Actor
}

// AdminOnly marks messages reserved for the administrator.
type AdminOnly interface {
	Attributed
	AdminOnly()
}

// RoleAuthorizer enforces authentication on attributed messages and the
// administrator role on AdminOnly ones. Other messages pass through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(_ context.Context, message any) error {
	attributed, ok := message.(Attributed)
	if !ok {
		return nil
	}
	caller := attributed.Caller()
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if _, adminOnly := message.(AdminOnly); adminOnly && !caller.IsAdministrator() {
		return ErrForbidden
	}
	return nil
}
