package models

import (
	"strings"
	"time"
)

// User is an account of the bookkeeping app.
type User struct {
	Username     string    `json:"username"`
	Canonical    string    `json:"canonical"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CanonicalUsername returns the lookup form of a username.
func CanonicalUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
