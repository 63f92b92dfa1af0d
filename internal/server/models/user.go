package models

import "time"

// User is an account of the auth API. Salt is the client's KDF salt; the
// server stores it but never uses it. An empty Salt means none was set yet.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}

// HasSalt reports whether the user has a KDF salt.
func (u *User) HasSalt() bool {
	return u.Salt != ""
}
