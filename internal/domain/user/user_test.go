package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEnroll(t *testing.T) {
	reg := &Registry{}
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := reg.Enroll(EnrollParams{ID: "u1", Email: " Admin@Example.com ", Name: "Ada", PasswordHash: "h", Now: now})
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, first.Role)
	assert.Equal(t, "admin@example.com", first.Email)
	assert.True(t, reg.AdminAssigned)

	second, err := reg.Enroll(EnrollParams{ID: "u2", Email: "bob@example.com", Name: "Bob", PasswordHash: "h", Now: now})
	require.NoError(t, err)
	assert.Equal(t, RoleClient, second.Role)
	assert.False(t, second.IsAdministrator())
}

func TestRegistryKeepsSeatOnFailure(t *testing.T) {
	reg := &Registry{}
	_, err := reg.Enroll(EnrollParams{ID: "u1", Email: "", Name: "Ada", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailRequired)
	assert.False(t, reg.AdminAssigned)
}

func TestNewUserValidation(t *testing.T) {
	cases := []struct {
		name   string
		params CreateParams
		err    error
	}{
		{"id", CreateParams{Email: "a@b.c", Name: "A", PasswordHash: "h", Role: RoleClient}, ErrIDRequired},
		{"email", CreateParams{ID: "1", Name: "A", PasswordHash: "h", Role: RoleClient}, ErrEmailRequired},
		{"hash", CreateParams{ID: "1", Email: "a@b.c", Name: "A", Role: RoleClient}, ErrPasswordHashMissing},
		{"name", CreateParams{ID: "1", Email: "a@b.c", PasswordHash: "h", Role: RoleClient}, ErrNameRequired},
		{"role", CreateParams{ID: "1", Email: "a@b.c", Name: "A", PasswordHash: "h"}, ErrInvalidRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.params)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Administrator")
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, r)
	assert.Equal(t, "administrator", r.String())

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
