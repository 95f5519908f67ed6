package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Business is the tenant a staff user operates under. The backend calls it a
// company in some payloads and a business in others.
type Business struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id" primary key.
func (b *Business) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.ID = raw.ID
	if b.ID == "" {
		b.ID = raw.MongoID
	}
	b.Name = raw.Name
	return nil
}

// User is the authenticated principal as decoded from the bearer token.
// Every field is best-effort: a token missing a claim yields a zero value.
type User struct {
	ID         string     `json:"id,omitempty"`
	Email      string     `json:"email,omitempty"`
	FirstName  string     `json:"firstName,omitempty"`
	LastName   string     `json:"lastName,omitempty"`
	Role       string     `json:"role,omitempty"`
	Businesses []Business `json:"businesses,omitempty"`
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Business looks up one of the user's businesses by ID.
func (u *User) Business(id string) (Business, bool) {
	for _, b := range u.Businesses {
		if b.ID == id {
			return b, true
		}
	}
	return Business{}, false
}

// Bookmark is a user's saved reference to a deal.
type Bookmark struct {
	ID        string     `json:"id" yaml:"id"`
	User      string     `json:"user" yaml:"user"`
	Deal      string     `json:"deal" yaml:"deal"`
	CreatedAt *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}
