package domain

import "time"

// Credential is a provider access token together with the single sync cursor
// shared by every account linked through it.
type Credential struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Cursor          *string
	ID              string
	AccessToken     string
	ItemID          string
	InstitutionID   string
	InstitutionName string
}

// CursorValue returns the stored cursor or "" when the credential was never synced.
func (c *Credential) CursorValue() string {
	if c.Cursor == nil {
		return ""
	}
	return *c.Cursor
}

// LinkedCredential is the result of exchanging a public link token.
type LinkedCredential struct {
	AccessToken string
	ItemID      string
}
