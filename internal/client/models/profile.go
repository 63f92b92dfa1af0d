// Package models defines client-side data models used by the zkvault CLI.
package models

// Profile is the user identity returned by the auth API, plus the access
// token of the current session. Salt may be empty for accounts created
// before salts were stored server side.
type Profile struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Salt        string `json:"salt,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}
