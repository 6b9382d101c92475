/*
Package message is the Message Store: an append-only log per channel with a bounded
history window and hard deletion.
*/
package message

import (
	"context"
	"errors"
	"time"
)

const (
	TypeText   = "text"
	TypeSystem = "system"
	TypeImage  = "image"
	TypeVideo  = "video"

	// SystemAuthorID marks messages written by the server itself.
	SystemAuthorID = "SYSTEM"

	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500

	// MaxTextBytes bounds the text of a single message.
	MaxTextBytes = 5000
)

var (
	ErrNotFound       = errors.New("message not found")
	ErrEmpty          = errors.New("message has no text or media")
	ErrTooLong        = errors.New("message text too long")
	ErrInvalidChannel = errors.New("message channel is empty")
	ErrInvalidType    = errors.New("unsupported message type")
)

// Reply is a quoted snapshot of the message being replied to.
type Reply struct {
	ID     string `json:"id" bson:"id"`
	Text   string `json:"text" bson:"text"`
	Author string `json:"username" bson:"author"`
}

// Message is an immutable chat record. Author fields are snapshots taken when the
// message was written, later profile edits do not change them.
type Message struct {
	ID           string    `json:"id" bson:"_id"`
	ChannelID    string    `json:"channelId" bson:"channel_id"`
	AuthorID     string    `json:"userId" bson:"author_id"`
	AuthorName   string    `json:"userName" bson:"author_name"`
	AuthorAvatar string    `json:"userAvatar" bson:"author_avatar"`
	AuthorEarth  string    `json:"userEarth" bson:"author_earth"`
	Text         string    `json:"text" bson:"text"`
	MediaURL     string    `json:"mediaUrl,omitempty" bson:"media_url,omitempty"`
	Type         string    `json:"type" bson:"type"`
	ReplyTo      *Reply    `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Draft is what a caller supplies to Append; the store assigns ID and CreatedAt.
type Draft struct {
	ChannelID    string
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	AuthorEarth  string
	Text         string
	MediaURL     string
	Type         string
	ReplyTo      *Reply
}

// Repository persists messages. Recent returns the newest limit records of a channel
// in chronological order, ties on CreatedAt broken by ID.
type Repository interface {
	Insert(ctx context.Context, m *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	Recent(ctx context.Context, channelID string, limit int) ([]Message, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, channelID string) (int64, error)
}
