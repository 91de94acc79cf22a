package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/middleware"
	"github.com/AhmedTUD/invoice/internal/session"
)

// AdminHandler exposes login, session checks, logout and password changes.
type AdminHandler struct {
	Sessions *session.Manager
}

func NewAdminHandler(m *session.Manager) *AdminHandler {
	return &AdminHandler{Sessions: m}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return failMsg(c, http.StatusBadRequest, "username and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	issued, err := h.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{
		"message":      "logged in",
		"sessionToken": issued.Token,
		"expiresAt":    issued.ExpiresAt,
	})
}

// VerifySession reports whether the presented token is live.
func (h *AdminHandler) VerifySession(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	s, err := h.Sessions.Verify(ctx, middleware.SessionToken(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"valid": true, "expiresAt": s.ExpiresAt})
}

// Logout deletes the presented session. Unknown tokens succeed as well.
func (h *AdminHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.Logout(ctx, middleware.SessionToken(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"message": "logged out"})
}

func (h *AdminHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.ChangePassword(ctx, middleware.SessionToken(c), req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"message": "password changed"})
}
