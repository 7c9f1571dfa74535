package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"depositrent/internal/app/dto"
	authsvc "depositrent/internal/app/services/auth"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

// AuthService is the part of auth.Service the HTTP layer calls.
type AuthService interface {
	Register(ctx context.Context, params authsvc.RegisterParams) (*authsvc.AuthResult, error)
	Login(ctx context.Context, params authsvc.LoginParams) (*authsvc.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

type AuthHandler struct {
	Service AuthService
	Logger  *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, sessionView(result))
}

func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, sessionView(result))
}

func (h AuthHandler) Logout(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{Error: "auth required"})
		return
	}
	if err := h.Service.Logout(c.Request.Context(), p.Token); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{Error: "auth required"})
		return
	}
	c.JSON(http.StatusOK, p.User)
}

func sessionView(result *authsvc.AuthResult) dto.SessionView {
	return dto.SessionView{
		Token:     string(result.Session.Token),
		ExpiresAt: result.Session.ExpiresAt,
		User:      dto.MapUser(result.User),
	}
}

var _ AuthHTTP = AuthHandler{}
