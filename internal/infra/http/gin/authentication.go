package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"depositrent/internal/app/dto"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/services/auth"
	domainauth "depositrent/internal/domain/auth"
)

const principalContextKey = "depositrent.principal"

type principal struct {
	Actor policies.Actor
	User  dto.UserView
	Token string
}

// TokenResolver is satisfied by auth.Service.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*auth.AuthResult, error)
}

// AuthMiddleware attaches the caller to the request when a valid bearer
// token is present. Anonymous requests pass through; handlers decide.
type AuthMiddleware struct {
	Service TokenResolver
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{
		Actor: resolved.Actor(),
		User:  dto.MapUser(resolved.User),
		Token: token,
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// actor returns the caller or the zero Actor. The authorization middleware
// on the buses rejects a zero Actor wherever one is required.
func actor(c *gin.Context) policies.Actor {
	p, _ := currentPrincipal(c)
	return p.Actor
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
