package domain

import "time"

// DefaultRole is granted to every account at creation.
const DefaultRole = "ROLE_USER"

// User represents an end user of the menu-ordering app. Roles are loaded
// alongside the row; the password hash lives in Credential and is never
// exposed here.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	ProfileURL string    `json:"profile_url,omitempty"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
}

// Credential is the 1:1 password record for an account created through the
// password-signup path. Social-only accounts have none.
type Credential struct {
	UserID       int64
	PasswordHash string
}

// Authority is a single role grant. Append-only.
type Authority struct {
	UserID int64
	Role   string
}

// Identity links a local account to a (provider, provider user id) pair and
// stores the latest provider access token. The pair is unique.
type Identity struct {
	UserID         int64
	Provider       string
	ProviderUserID string
	AccessToken    string
}

// AuthResult bundles freshly minted tokens with the user record. It is built
// per request and never persisted. RefreshToken is empty on refresh-only
// responses.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         User   `json:"user"`
}
