// Package models defines the persisted domain records and their public
// JSON projections.
package models

import "time"

// Provider identifies how an account authenticates
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderLinkedIn Provider = "linkedin"
	ProviderLocal    Provider = "local"
)

// Valid reports whether p is a known provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderLinkedIn, ProviderLocal:
		return true
	}
	return false
}

// User is one person's identity plus ballot state. Email is globally unique
// (stored lowercased); provider+ProviderID, when both present, also uniquely
// identify the account. HasVoted is true iff VotedFor is set, and never
// reverts once set.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Provider     Provider `json:"provider"`
	ProviderID   string   `json:"-"`
	AvatarURL    string   `json:"profilePicture"`
	LinkedInURL  string   `json:"linkedin"`

	HasVoted bool       `json:"hasVoted"`
	VotedAt  *time.Time `json:"votedAt,omitempty"`
	VotedFor *string    `json:"votedFor,omitempty"`

	ResetTokenHash    string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsLocal reports whether the account carries a local password
func (u *User) IsLocal() bool {
	return u.Provider == ProviderLocal
}

// Voter is the public-safe projection of a user who has voted. It must never
// carry email, password material, or reset tokens.
type Voter struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"profilePicture"`
	VotedAt     *time.Time `json:"votedAt"`
	LinkedInURL string     `json:"linkedin"`
}

// PublicVoter converts a user record into its voter roster projection
func (u *User) PublicVoter() Voter {
	return Voter{
		ID:          u.ID,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		VotedAt:     u.VotedAt,
		LinkedInURL: u.LinkedInURL,
	}
}
