package domain

import "time"

// User es una cuenta persistida. PasswordHash y OAuthID nunca se serializan.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	IsVerified     bool      `json:"isVerified"`
	OAuthProvider  string    `json:"oauthProvider,omitempty"`
	OAuthID        string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasPassword indica si la cuenta admite login local.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

const OAuthProviderGoogle = "google"
