package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AhmedTUD/invoice/internal/model"
)

// CatalogRepo manages the product model catalog.
type CatalogRepo struct{ DB *sql.DB }

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{DB: db} }

const catalogColumns = "id, name, category, description, is_active, created_at, updated_at"

// List returns the catalog ordered by category then name.
func (r *CatalogRepo) List(ctx context.Context, activeOnly bool) ([]model.CatalogModel, error) {
	query := "SELECT " + catalogColumns + " FROM models"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY category, name"

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CatalogModel{}
	for rows.Next() {
		m, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound for unknown ids.
func (r *CatalogRepo) GetByID(ctx context.Context, id string) (model.CatalogModel, error) {
	m, err := scanCatalog(r.DB.QueryRowContext(ctx, "SELECT "+catalogColumns+" FROM models WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.CatalogModel{}, ErrNotFound
	}
	return m, err
}

// Create inserts m with a new id. Names are unique.
func (r *CatalogRepo) Create(ctx context.Context, m model.CatalogModel, now time.Time) (model.CatalogModel, error) {
	taken, err := r.nameTaken(ctx, m.Name, "")
	if err != nil {
		return model.CatalogModel{}, err
	}
	if taken {
		return model.CatalogModel{}, ErrDuplicateName
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt, m.UpdatedAt = now.UTC(), now.UTC()
	ts := model.FormatTime(now)
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO models ("+catalogColumns+") VALUES (?,?,?,?,?,?,?)",
		m.ID, m.Name, m.Category, m.Description, boolInt(m.IsActive), ts, ts)
	if isUniqueViolation(err) {
		return model.CatalogModel{}, ErrDuplicateName
	}
	if err != nil {
		return model.CatalogModel{}, err
	}
	return m, nil
}

// Update overwrites name, category, description and active flag. Invoices
// keep the name they were submitted with.
func (r *CatalogRepo) Update(ctx context.Context, id string, m model.CatalogModel, now time.Time) (model.CatalogModel, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return model.CatalogModel{}, err
	}
	taken, err := r.nameTaken(ctx, m.Name, id)
	if err != nil {
		return model.CatalogModel{}, err
	}
	if taken {
		return model.CatalogModel{}, ErrDuplicateName
	}

	_, err = r.DB.ExecContext(ctx,
		"UPDATE models SET name = ?, category = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ?",
		m.Name, m.Category, m.Description, boolInt(m.IsActive), model.FormatTime(now), id)
	if isUniqueViolation(err) {
		return model.CatalogModel{}, ErrDuplicateName
	}
	if err != nil {
		return model.CatalogModel{}, err
	}

	m.ID = id
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = now.UTC()
	return m, nil
}

// Delete removes a model unless invoices still carry its name.
func (r *CatalogRepo) Delete(ctx context.Context, id string) (model.CatalogModel, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return model.CatalogModel{}, err
	}

	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoices WHERE model = ?", m.Name).Scan(&n); err != nil {
		return model.CatalogModel{}, err
	}
	if n > 0 {
		return model.CatalogModel{}, &InUseError{Name: m.Name, Count: n}
	}

	if _, err := r.DB.ExecContext(ctx, "DELETE FROM models WHERE id = ?", id); err != nil {
		return model.CatalogModel{}, err
	}
	return m, nil
}

// SeedDefaults inserts defaults when the catalog is empty and reports how
// many rows were added.
func (r *CatalogRepo) SeedDefaults(ctx context.Context, defaults []model.CatalogModel, now time.Time) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM models").Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for _, m := range defaults {
		if _, err := r.Create(ctx, m, now); err != nil {
			return 0, err
		}
	}
	return len(defaults), nil
}

func (r *CatalogRepo) nameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM models WHERE name = ? AND id <> ?", name, exceptID).Scan(&n)
	return n > 0, err
}

func scanCatalog(s rowScanner) (model.CatalogModel, error) {
	var (
		m                    model.CatalogModel
		createdAt, updatedAt string
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Category, &m.Description, &m.IsActive, &createdAt, &updatedAt); err != nil {
		return model.CatalogModel{}, err
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
