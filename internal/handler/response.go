package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/export"
	"github.com/AhmedTUD/invoice/internal/intake"
	"github.com/AhmedTUD/invoice/internal/middleware"
	"github.com/AhmedTUD/invoice/internal/records"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/session"
	"github.com/AhmedTUD/invoice/internal/storage"
	"github.com/AhmedTUD/invoice/internal/utils"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// ok writes {"success": true, ...extra}.
func ok(c echo.Context, extra echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

func failMsg(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// fail maps service errors onto status codes. Unknown errors are logged and
// reported as 500 without detail.
func fail(c echo.Context, err error) error {
	var inUse *repository.InUseError
	switch {
	case errors.As(err, &inUse):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": inUse.Error(),
			"count":   inUse.Count,
		})
	case errors.Is(err, intake.ErrValidation),
		errors.Is(err, records.ErrEmptyFilters),
		errors.Is(err, export.ErrNoRecords),
		errors.Is(err, repository.ErrDuplicateName),
		errors.Is(err, session.ErrWrongCurrentPassword),
		errors.Is(err, session.ErrEmptyPassword),
		errors.Is(err, session.ErrPasswordTooLong),
		errors.Is(err, storage.ErrInvalidName):
		return failMsg(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrSessionInvalid):
		return failMsg(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, utils.ErrInvalidFileLink):
		return failMsg(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return failMsg(c, http.StatusNotFound, err.Error())
	}
	middleware.Logger(c).Error(c.Request().Context(), "request failed",
		"method", c.Request().Method, "route", c.Path(), "error", err)
	return failMsg(c, http.StatusInternalServerError, "internal server error")
}
