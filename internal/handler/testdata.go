package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/dbx"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/repository"
)

// TestDataHandler seeds the demo employee used for trying the intake form.
type TestDataHandler struct {
	DB        *sql.DB
	Employees *repository.EmployeeRepo
}

func NewTestDataHandler(db *sql.DB, r *repository.EmployeeRepo) *TestDataHandler {
	return &TestDataHandler{DB: db, Employees: r}
}

func (h *TestDataHandler) Seed(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	err := dbx.WithTx(ctx, h.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := h.Employees.Upsert(ctx, tx, model.DemoEmployee, time.Now())
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	e, err := h.Employees.GetByEmail(ctx, model.DemoEmployee.Email)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"message": "demo employee ready", "data": e})
}
