package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/session"
)

// SessionVerifier is implemented by session.Manager.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (model.AdminSession, error)
}

// RequireSession rejects requests without a live admin session with 401.
// Store failures are reported as 500.
// The accepted token is stored in the context for handlers.
func RequireSession(v SessionVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := SessionToken(c)
			if tok == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "session token required"})
			}
			_, err := v.Verify(c.Request().Context(), tok)
			switch {
			case errors.Is(err, session.ErrSessionInvalid):
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid or expired session"})
			case err != nil:
				Logger(c).Error(c.Request().Context(), "verify session failed", "error", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
			}
			c.Set(ctxToken, tok)
			return next(c)
		}
	}
}
