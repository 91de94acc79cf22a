// Package session implements admin authentication: credential checks,
// server-side sessions with a fixed lifetime, password changes and the
// periodic removal of expired sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AhmedTUD/invoice/internal/logging"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/utils"
)

var (
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrSessionInvalid       = errors.New("session is invalid or expired")
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	ErrEmptyPassword        = errors.New("new password must not be empty")
	ErrPasswordTooLong      = fmt.Errorf("new password must not exceed %d bytes", MaxPasswordBytes)
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Options configures a Manager. Zero values get defaults.
type Options struct {
	TTL        time.Duration
	BcryptCost int
	Now        func() time.Time
	Logger     logging.Logger
}

// Manager issues and checks admin sessions.
type Manager struct {
	admins   *repository.AdminRepo
	sessions *repository.SessionRepo
	ttl      time.Duration
	cost     int
	now      func() time.Time
	log      logging.Logger
}

func NewManager(admins *repository.AdminRepo, sessions *repository.SessionRepo, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Manager{
		admins:   admins,
		sessions: sessions,
		ttl:      opts.TTL,
		cost:     opts.BcryptCost,
		now:      opts.Now,
		log:      opts.Logger.With("component", "session"),
	}
}

// Issued is a freshly created session. Token is only ever returned here.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Login checks the credentials and creates a session valid for the TTL.
// Nothing is stored when the credentials are wrong.
func (m *Manager) Login(ctx context.Context, username, password string) (Issued, error) {
	settings, err := m.admins.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return Issued{}, ErrInvalidCredentials
	}
	if err != nil {
		return Issued{}, fmt.Errorf("load admin settings: %w", err)
	}

	userOK := utils.EqualConstantTime(username, settings.Username)
	passOK := utils.VerifyPassword(settings.PasswordHash, password)
	if !userOK || !passOK {
		m.log.Warn(ctx, "admin login rejected")
		return Issued{}, ErrInvalidCredentials
	}

	token, err := utils.NewSessionToken()
	if err != nil {
		return Issued{}, fmt.Errorf("generate token: %w", err)
	}
	now := m.now().UTC().Truncate(time.Millisecond)
	s := model.AdminSession{
		ID:        uuid.NewString(),
		TokenHash: utils.HashToken(token),
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return Issued{}, fmt.Errorf("store session: %w", err)
	}
	m.log.Info(ctx, "admin session created", "session_id", s.ID, "expires_at", s.ExpiresAt)
	return Issued{Token: token, ExpiresAt: s.ExpiresAt}, nil
}

// Verify returns the session for token. Sessions whose expiry is at or
// before the current time are invalid; verification never extends them.
func (m *Manager) Verify(ctx context.Context, token string) (model.AdminSession, error) {
	if token == "" {
		return model.AdminSession{}, ErrSessionInvalid
	}
	s, err := m.sessions.FindByHash(ctx, utils.HashToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return model.AdminSession{}, ErrSessionInvalid
	}
	if err != nil {
		return model.AdminSession{}, fmt.Errorf("load session: %w", err)
	}
	if !s.ExpiresAt.After(m.now()) {
		return model.AdminSession{}, ErrSessionInvalid
	}
	return s, nil
}

// Logout deletes the session for token. Unknown tokens are ignored.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.sessions.DeleteByHash(ctx, utils.HashToken(token))
}

// ChangePassword replaces the admin password. It requires a valid session
// and the current password. Other sessions stay valid.
func (m *Manager) ChangePassword(ctx context.Context, token, current, next string) error {
	if _, err := m.Verify(ctx, token); err != nil {
		return err
	}
	if next == "" {
		return ErrEmptyPassword
	}
	if len(next) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	settings, err := m.admins.Get(ctx)
	if err != nil {
		return fmt.Errorf("load admin settings: %w", err)
	}
	if !utils.VerifyPassword(settings.PasswordHash, current) {
		return ErrWrongCurrentPassword
	}
	hash, err := utils.HashPassword(next, m.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.admins.UpdatePassword(ctx, hash, m.now()); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	m.log.Info(ctx, "admin password changed")
	return nil
}

// Sweep deletes expired sessions and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}
