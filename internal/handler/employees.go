package handler

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/repository"
)

// minSearchLen is the shortest fragment worth querying for.
const minSearchLen = 5

type EmployeeHandler struct {
	Employees *repository.EmployeeRepo
}

func NewEmployeeHandler(r *repository.EmployeeRepo) *EmployeeHandler {
	return &EmployeeHandler{Employees: r}
}

// Search returns up to 10 employees whose email contains the email query
// parameter. Fragments without '@' or shorter than five characters yield an
// empty list.
func (h *EmployeeHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("email"))
	if len(q) < minSearchLen || !strings.Contains(q, "@") {
		return ok(c, echo.Map{"data": []model.Employee{}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Employees.Search(ctx, q)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"data": list})
}

// Get returns the employee stored under the :email path parameter.
func (h *EmployeeHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	e, err := h.Employees.GetByEmail(ctx, strings.TrimSpace(c.Param("email")))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"data": e})
}
