/*
Package channel is the Channel Registry: the fixed built-in channels, user-created
channels persisted through a Repository, and the derived direct-message ids.
*/
package channel

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	TypePublic  = "public"
	TypePrivate = "private"
	TypeDirect  = "dm"

	// MaxIDLength bounds a normalized channel id.
	MaxIDLength = 64

	directPrefix = "dm_"
)

var (
	ErrExists      = errors.New("channel already exists")
	ErrNotFound    = errors.New("channel not found")
	ErrInvalidName = errors.New("invalid channel name")
)

// Channel is a named conversation space.
type Channel struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Type      string    `json:"type" bson:"type"`
	Members   []string  `json:"members,omitempty" bson:"members,omitempty"`
	Locked    bool      `json:"locked,omitempty" bson:"-"`
	CreatedBy string    `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty" bson:"created_at"`
}

// builtins are always present, in this order, ahead of user-created channels.
var builtins = []Channel{
	{ID: "rules", Name: "rules", Type: TypePublic, Locked: true},
	{ID: "hq", Name: "spider-society-hq", Type: TypePublic},
	{ID: "lore-archive", Name: "lore-archive", Type: TypePublic, Locked: true},
	{ID: "missions-board", Name: "missions-board", Type: TypePublic},
	{ID: "tech-support", Name: "tech-support", Type: TypePublic},
}

const (
	RulesID       = "rules"
	HQID          = "hq"
	LoreArchiveID = "lore-archive"
	MissionsID    = "missions-board"
)

// Builtins returns a copy of the built-in channel list.
func Builtins() []Channel {
	out := make([]Channel, len(builtins))
	copy(out, builtins)
	return out
}

func builtin(id string) (Channel, bool) {
	for _, c := range builtins {
		if c.ID == id {
			return c, true
		}
	}
	return Channel{}, false
}

// IsRestricted reports whether posting to id requires the admin identity.
func IsRestricted(id string) bool {
	c, ok := builtin(id)
	return ok && c.Locked
}

// ResolveDirect returns the direct-message channel id for two users. The result does
// not depend on argument order and is never persisted.
func ResolveDirect(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return directPrefix + a + "_" + b
}

// IsDirect reports whether id has the direct-message shape.
func IsDirect(id string) bool {
	return strings.HasPrefix(id, directPrefix)
}

// IsParticipant reports whether userID is one of the two users of the direct
// channel id.
func IsParticipant(id, userID string) bool {
	if !IsDirect(id) || userID == "" {
		return false
	}
	pair := strings.TrimPrefix(id, directPrefix)
	return strings.HasPrefix(pair, userID+"_") || strings.HasSuffix(pair, "_"+userID)
}

// OtherParticipant returns the user sharing the direct channel id with userID.
func OtherParticipant(id, userID string) (string, bool) {
	if !IsParticipant(id, userID) {
		return "", false
	}
	pair := strings.TrimPrefix(id, directPrefix)
	if other, ok := strings.CutPrefix(pair, userID+"_"); ok {
		return other, true
	}
	return strings.TrimSuffix(pair, "_"+userID), true
}

// CanRead reports whether userID may see c. Public channels are open to everyone;
// private channels to their members.
func (c *Channel) CanRead(userID string) bool {
	if c.Type != TypePrivate {
		return true
	}
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize turns a display name into a channel id: lower-case, every run of
// characters outside [a-z0-9] becomes a single '-', no leading or trailing '-'.
func Normalize(name string) string {
	id := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(id, "-")
}

// Repository persists user-created channels. Create must return ErrExists when the id
// is taken, even under concurrent creation.
type Repository interface {
	Create(ctx context.Context, c *Channel) error
	Get(ctx context.Context, id string) (*Channel, error)
	List(ctx context.Context) ([]Channel, error)
}
