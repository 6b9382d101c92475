package message

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/randx"
)

// clock hands out strictly increasing millisecond timestamps.
type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// Service validates and stores messages.
type Service struct {
	repo         Repository
	historyLimit int
	clock        *clock
	logger       zerolog.Logger
}

// NewService creates a Service. historyLimit is the window used when History is
// called without an explicit limit; values outside 1..MaxHistoryLimit fall back to
// DefaultHistoryLimit.
func NewService(repo Repository, historyLimit int) *Service {
	if historyLimit < 1 || historyLimit > MaxHistoryLimit {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{
		repo:         repo,
		historyLimit: historyLimit,
		clock:        &clock{now: time.Now},
		logger:       logx.Component("message_store"),
	}
}

// Append stores a new message and returns it with its id and timestamp. The channel
// id is taken as given; existence is not checked.
func (s *Service) Append(ctx context.Context, d Draft) (*Message, error) {
	if strings.TrimSpace(d.ChannelID) == "" {
		return nil, ErrInvalidChannel
	}
	if strings.TrimSpace(d.Text) == "" && d.MediaURL == "" {
		return nil, ErrEmpty
	}
	if len(d.Text) > MaxTextBytes {
		return nil, ErrTooLong
	}

	msgType := d.Type
	switch msgType {
	case "":
		msgType = TypeText
		if d.MediaURL != "" {
			msgType = TypeImage
		}
	case TypeText, TypeSystem, TypeImage, TypeVideo:
	default:
		return nil, ErrInvalidType
	}

	m := &Message{
		ID:           randx.ID(),
		ChannelID:    d.ChannelID,
		AuthorID:     d.AuthorID,
		AuthorName:   d.AuthorName,
		AuthorAvatar: d.AuthorAvatar,
		AuthorEarth:  d.AuthorEarth,
		Text:         d.Text,
		MediaURL:     d.MediaURL,
		Type:         msgType,
		ReplyTo:      d.ReplyTo,
		CreatedAt:    s.clock.next(),
	}

	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return m, nil
}

// History returns up to limit of the newest messages in channelID, oldest first.
// limit <= 0 uses the configured window; larger than MaxHistoryLimit is clamped.
func (s *Service) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	switch {
	case limit <= 0:
		limit = s.historyLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	msgs, err := s.repo.Recent(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// Get returns a message by id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Message, error) {
	return s.repo.Get(ctx, id)
}

// Remove hard-deletes a message. A second Remove of the same id returns ErrNotFound.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
