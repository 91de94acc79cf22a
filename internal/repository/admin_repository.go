package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AhmedTUD/invoice/internal/model"
)

// adminSettingsID is the key of the singleton credential row.
const adminSettingsID = 1

// AdminRepo reads and updates the admin credentials.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// Get returns ErrNotFound before the row has been seeded.
func (r *AdminRepo) Get(ctx context.Context) (model.AdminSettings, error) {
	var (
		s         model.AdminSettings
		updatedAt string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, updated_at FROM admin_settings WHERE id = ?", adminSettingsID).
		Scan(&s.ID, &s.Username, &s.PasswordHash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AdminSettings{}, ErrNotFound
	}
	if err != nil {
		return model.AdminSettings{}, err
	}
	s.UpdatedAt = parseTime(updatedAt)
	return s, nil
}

// EnsureDefault inserts the credential row when missing. It reports whether
// a row was created.
func (r *AdminRepo) EnsureDefault(ctx context.Context, username, passwordHash string, now time.Time) (bool, error) {
	_, err := r.Get(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO admin_settings (id, username, password_hash, updated_at) VALUES (?,?,?,?)",
		adminSettingsID, username, passwordHash, model.FormatTime(now))
	if isUniqueViolation(err) {
		return false, nil
	}
	return err == nil, err
}

// UpdatePassword replaces the stored hash.
func (r *AdminRepo) UpdatePassword(ctx context.Context, passwordHash string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE admin_settings SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, model.FormatTime(now), adminSettingsID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
