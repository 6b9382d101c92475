package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spiderlink/internal/pkg/logx"
)

// Registry merges the built-in channels with persisted ones.
type Registry struct {
	repo   Repository
	now    func() time.Time
	logger zerolog.Logger
}

func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		now:    time.Now,
		logger: logx.Component("channel_registry"),
	}
}

// List returns the built-ins followed by persisted channels. A persisted record that
// shares an id with a built-in is hidden.
func (r *Registry) List(ctx context.Context) ([]Channel, error) {
	stored, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	out := Builtins()
	for _, c := range stored {
		if _, shadowed := builtin(c.ID); shadowed {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Get returns a built-in or persisted channel by id.
func (r *Registry) Get(ctx context.Context, id string) (*Channel, error) {
	if c, ok := builtin(id); ok {
		return &c, nil
	}
	return r.repo.Get(ctx, id)
}

// Create persists a channel named name. With members it is private and always
// includes the creator; without members it is public.
func (r *Registry) Create(ctx context.Context, name string, members []string, creatorID string) (*Channel, error) {
	id := Normalize(name)
	if id == "" || len(id) > MaxIDLength {
		return nil, ErrInvalidName
	}

	if _, ok := builtin(id); ok {
		return nil, ErrExists
	}

	if _, err := r.repo.Get(ctx, id); err == nil {
		return nil, ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup channel: %w", err)
	}

	c := &Channel{
		ID:        id,
		Name:      id,
		Type:      TypePublic,
		CreatedBy: creatorID,
		CreatedAt: r.now().UTC(),
	}

	if len(members) > 0 {
		c.Type = TypePrivate
		c.Members = dedupe(append([]string{creatorID}, members...))
	}

	// The lookup above is only a fast path; the repository decides races.
	if err := r.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create channel: %w", err)
	}

	r.logger.Info().Str("channel_id", c.ID).Str("type", c.Type).Str("created_by", creatorID).Msg("Channel created")
	return c, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
