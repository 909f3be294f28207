package domain

import "time"

// Identity is the subset of a user carried inside an access token.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

// AccessToken describes an issued bearer token.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}
