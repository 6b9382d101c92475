/*
Package user holds the User Directory: identities, credentials, the one-time
character profile and the online flag shown in member lists.
*/
package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrAlreadyExists      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrProfileInvalid     = errors.New("invalid profile")
)

// User is a registered identity. Users are never deleted.
type User struct {
	ID           string `json:"uid" bson:"_id"`
	Handle       string `json:"-" bson:"handle"`
	Email        string `json:"-" bson:"email,omitempty"`
	PasswordHash string `json:"-" bson:"password_hash"`
	GoogleID     string `json:"-" bson:"google_id,omitempty"`
	GithubID     string `json:"-" bson:"github_id,omitempty"`

	Name       string `json:"name" bson:"name"`
	Earth      string `json:"earth" bson:"earth"`
	Lore       string `json:"lore" bson:"lore"`
	Avatar     string `json:"avatar" bson:"avatar"`
	HasProfile bool   `json:"hasProfile" bson:"has_profile"`

	Online    bool      `json:"online" bson:"online"`
	ConnID    string    `json:"-" bson:"conn_id,omitempty"`
	LastSeen  time.Time `json:"lastSeen" bson:"last_seen"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Profile is the character sheet a user fills in once after signing up.
type Profile struct {
	Name   string `json:"name"`
	Earth  string `json:"earth"`
	Lore   string `json:"lore"`
	Avatar string `json:"avatar"`
}

// Profile returns the user's current character sheet.
func (u *User) Profile() Profile {
	return Profile{Name: u.Name, Earth: u.Earth, Lore: u.Lore, Avatar: u.Avatar}
}

// Member is the public view of a user in member lists and presence snapshots.
type Member struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Earth   string `json:"earth"`
	Avatar  string `json:"avatar"`
	Online  bool   `json:"online"`
	IsAdmin bool   `json:"isAdmin"`
}

// Repository persists users. Implementations must be safe for concurrent use and
// enforce uniqueness of ID, Handle and (non-empty) Email, returning ErrAlreadyExists.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByHandle(ctx context.Context, handle string) (*User, error)
	UpdateProfile(ctx context.Context, id string, p Profile) error
	SetPresence(ctx context.Context, id string, online bool, connID string, seen time.Time) error
	ListProfiled(ctx context.Context, onlineOnly bool) ([]User, error)
	ResetPresence(ctx context.Context) error
}
