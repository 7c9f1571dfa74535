package dto

import (
	"time"

	domainuser "depositrent/internal/domain/user"
)

type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

func MapUser(u *domainuser.User) UserView {
	return UserView{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
	}
}
