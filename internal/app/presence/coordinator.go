package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/logx"
)

const (
	// EventMembersUpdate carries the full list of online members with a profile.
	EventMembersUpdate = "membersUpdate"

	// SupersededReason is sent to a connection replaced by a newer one of the same user.
	SupersededReason = "Session replaced by a new connection. Check other tabs."
)

var ErrNotAuthenticated = errors.New("connection is not authenticated")

// Fanout delivers events to live connections.
type Fanout interface {
	Publish(ctx context.Context, event string, payload any) error
	Kick(connID, reason string)
}

// Coordinator owns the session table. Every transition (bind, unbind, refresh)
// marks the user, recomputes the snapshot and publishes it while holding one lock,
// so snapshots go out in the order the transitions happened.
type Coordinator struct {
	mu       sync.Mutex
	sessions *Sessions
	dir      *user.Directory
	fanout   Fanout
	logger   zerolog.Logger
}

func NewCoordinator(dir *user.Directory, fanout Fanout) *Coordinator {
	return &Coordinator{
		sessions: NewSessions(),
		dir:      dir,
		fanout:   fanout,
		logger:   logx.Component("presence"),
	}
}

// Authenticate binds connID to userID and marks the user online. A previous
// connection of the same user is kicked.
func (c *Coordinator) Authenticate(ctx context.Context, connID, userID string) (*user.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.dir.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// The session table changes only once the user is persisted as online.
	if err := c.dir.MarkOnline(ctx, u.ID, connID); err != nil {
		return nil, fmt.Errorf("mark online: %w", err)
	}

	superseded, replaced := c.sessions.Bind(connID, u.ID)

	if replaced != "" {
		if err := c.dir.MarkOffline(ctx, replaced); err != nil {
			c.logger.Error().Err(err).Str("user_id", replaced).Msg("Failed to mark replaced user offline")
		}
	}

	u.Online = true
	u.ConnID = connID

	if superseded != "" {
		c.logger.Warn().
			Str("user_id", u.ID).
			Str("old_conn_id", superseded).
			Str("new_conn_id", connID).
			Msg("User connected again, superseding previous connection")
		c.fanout.Kick(superseded, SupersededReason)
	}

	c.logger.Info().Str("user_id", u.ID).Str("conn_id", connID).Int("sessions", c.sessions.Len()).Msg("Connection authenticated")

	c.publishLocked(ctx)
	return u, nil
}

// Disconnect forgets connID. The user goes offline only if connID was still their
// current connection.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, current := c.sessions.Unbind(connID)
	if userID == "" {
		return
	}

	if current {
		if err := c.dir.MarkOffline(ctx, userID); err != nil {
			c.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mark user offline")
		}
	}

	c.logger.Info().
		Str("user_id", userID).
		Str("conn_id", connID).
		Bool("superseded", !current).
		Msg("Connection unbound")

	c.publishLocked(ctx)
}

// Refresh marks the user bound to connID online again.
func (c *Coordinator) Refresh(ctx context.Context, connID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, ok := c.sessions.Lookup(connID)
	if !ok {
		return ErrNotAuthenticated
	}

	if err := c.dir.MarkOnline(ctx, userID, connID); err != nil {
		return fmt.Errorf("mark online: %w", err)
	}

	c.publishLocked(ctx)
	return nil
}

// Broadcast publishes a fresh members snapshot.
func (c *Coordinator) Broadcast(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.publishLocked(ctx)
}

// Lookup returns the user bound to connID.
func (c *Coordinator) Lookup(connID string) (string, bool) {
	return c.sessions.Lookup(connID)
}

// Sessions exposes the session table for inspection.
func (c *Coordinator) Sessions() *Sessions {
	return c.sessions
}

func (c *Coordinator) publishLocked(ctx context.Context) {
	members, err := c.dir.Online(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to load online members")
		return
	}

	if err := c.fanout.Publish(ctx, EventMembersUpdate, members); err != nil {
		c.logger.Error().Err(err).Msg("Failed to publish members snapshot")
	}
}
