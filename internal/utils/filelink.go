package utils

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidFileLink is returned for tokens that are malformed, expired,
// signed with another key or issued for another file.
var ErrInvalidFileLink = errors.New("invalid file link")

// FileLinkSigner issues and checks short-lived HS256 tokens that grant read
// access to one stored invoice file.
type FileLinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewFileLinkSigner(secret string, ttl time.Duration) *FileLinkSigner {
	return &FileLinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token whose subject is the stored file name.
func (s *FileLinkSigner) Sign(name string) (string, error) {
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// URL returns the download path for name with a fresh token attached.
func (s *FileLinkSigner) URL(name string) (string, error) {
	tok, err := s.Sign(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/api/files/%s?token=%s", url.PathEscape(name), url.QueryEscape(tok)), nil
}

// Verify checks that raw is a valid token for name.
func (s *FileLinkSigner) Verify(raw, name string) error {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidFileLink
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return ErrInvalidFileLink
	}
	if claims.Subject != name {
		return ErrInvalidFileLink
	}
	return nil
}
