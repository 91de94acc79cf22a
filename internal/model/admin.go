package model

import "time"

// AdminSession is a server-side admin session. Only a hash of the token
// handed to the client is stored.
type AdminSession struct {
	ID        string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AdminSettings is the singleton credential row.
type AdminSettings struct {
	ID           int
	Username     string
	PasswordHash string
	UpdatedAt    time.Time
}
