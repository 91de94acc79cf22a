package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AhmedTUD/invoice/internal/model"
)

// SessionRepo stores admin sessions by token hash.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s model.AdminSession) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO admin_sessions (id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		s.ID, s.TokenHash, model.FormatTime(s.ExpiresAt), model.FormatTime(s.CreatedAt))
	return err
}

// FindByHash returns ErrNotFound when no session carries tokenHash. Expiry
// is left to the caller.
func (r *SessionRepo) FindByHash(ctx context.Context, tokenHash string) (model.AdminSession, error) {
	var (
		s                    model.AdminSession
		expiresAt, createdAt string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token_hash, expires_at, created_at FROM admin_sessions WHERE token_hash = ?", tokenHash).
		Scan(&s.ID, &s.TokenHash, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AdminSession{}, ErrNotFound
	}
	if err != nil {
		return model.AdminSession{}, err
	}
	s.ExpiresAt = parseTime(expiresAt)
	s.CreatedAt = parseTime(createdAt)
	return s, nil
}

// DeleteByHash removes a session. Deleting an unknown hash is not an error.
func (r *SessionRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM admin_sessions WHERE token_hash = ?", tokenHash)
	return err
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM admin_sessions WHERE expires_at <= ?", model.FormatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
