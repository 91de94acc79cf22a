package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AhmedTUD/invoice/internal/dbx"
	"github.com/AhmedTUD/invoice/internal/filter"
	"github.com/AhmedTUD/invoice/internal/model"
)

// EmployeeRepo reads and writes the employee directory.
type EmployeeRepo struct{ DB *sql.DB }

func NewEmployeeRepo(db *sql.DB) *EmployeeRepo { return &EmployeeRepo{DB: db} }

const employeeColumns = "id, email, name, mobile, serial, store_name, store_code, created_at, updated_at"

// Upsert stores b under its email. An existing row keeps its id and
// created_at; every other attribute is overwritten. Returns the employee id.
func (r *EmployeeRepo) Upsert(ctx context.Context, q dbx.DBTX, b model.BasicData, now time.Time) (string, error) {
	ts := model.FormatTime(now)

	var id string
	err := q.QueryRowContext(ctx, "SELECT id FROM employees WHERE email = ?", b.Email).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = q.ExecContext(ctx,
			"INSERT INTO employees ("+employeeColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
			id, b.Email, b.Name, b.Mobile, b.Serial, b.StoreName, b.StoreCode, ts, ts)
		return id, err
	case err != nil:
		return "", err
	}

	_, err = q.ExecContext(ctx,
		"UPDATE employees SET name = ?, mobile = ?, serial = ?, store_name = ?, store_code = ?, updated_at = ? WHERE id = ?",
		b.Name, b.Mobile, b.Serial, b.StoreName, b.StoreCode, ts, id)
	return id, err
}

// Search returns up to 10 employees whose email contains fragment, most
// recently updated first.
func (r *EmployeeRepo) Search(ctx context.Context, fragment string) ([]model.Employee, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE email LIKE ? ESCAPE '!' ORDER BY updated_at DESC LIMIT 10",
		"%"+filter.EscapeLike(fragment)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetByEmail returns ErrNotFound for unknown addresses.
func (r *EmployeeRepo) GetByEmail(ctx context.Context, email string) (model.Employee, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE email = ?", email)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Employee{}, ErrNotFound
	}
	return e, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(s rowScanner) (model.Employee, error) {
	var (
		e                    model.Employee
		createdAt, updatedAt string
	)
	if err := s.Scan(&e.ID, &e.Email, &e.Name, &e.Mobile, &e.Serial, &e.StoreName, &e.StoreCode, &createdAt, &updatedAt); err != nil {
		return model.Employee{}, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

func parseTime(s string) time.Time {
	t, _ := model.ParseTime(s)
	return t
}
