package model

import "time"

// User is a stored account.
//
// Google users are upserted by email on every successful login. The admin
// flag and password hash are only ever written by cmd/provision-admin; no
// HTTP endpoint changes them.
//
// PasswordHash is never serialised to JSON.
type User struct {
	Sub          string    `json:"sub"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Picture      string    `json:"picture,omitempty"`
	IsAdmin      bool      `json:"isAdmin"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLoginAt  time.Time `json:"lastLoginAt"`
}

// Role is the display role derived from the admin flag.
func (u *User) Role() string {
	if u != nil && u.IsAdmin {
		return "admin"
	}
	return "user"
}

// Identity is the resolved caller of a request: either the claims of a
// signed admin session or the profile returned by the identity provider.
type Identity struct {
	Sub     string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Attendee snapshots the identity's display fields at the given instant.
func (i Identity) Attendee(at time.Time) Attendee {
	return Attendee{
		UserSub:  i.Sub,
		Name:     i.Name,
		Email:    i.Email,
		Picture:  i.Picture,
		JoinedAt: at,
	}
}
