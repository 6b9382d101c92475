/*
Package memory keeps users, channels and messages in process memory behind
RWMutexes. It backs development runs and the test suites of the packages above it.
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/user"
)

// UserRepo implements user.Repository.
type UserRepo struct {
	mu       sync.RWMutex
	byID     map[string]*user.User
	byHandle map[string]string
	byEmail  map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:     make(map[string]*user.User),
		byHandle: make(map[string]string),
		byEmail:  make(map[string]string),
	}
}

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return user.ErrAlreadyExists
	}
	if _, ok := r.byHandle[u.Handle]; ok {
		return user.ErrAlreadyExists
	}
	if u.Email != "" {
		if _, ok := r.byEmail[u.Email]; ok {
			return user.ErrAlreadyExists
		}
		r.byEmail[u.Email] = u.ID
	}

	cp := *u
	r.byID[u.ID] = &cp
	r.byHandle[u.Handle] = u.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*user.User, error) {
	r.mu.RLock()
	id, ok := r.byHandle[handle]
	r.mu.RUnlock()

	if !ok {
		return nil, user.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) UpdateProfile(_ context.Context, id string, p user.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Name, u.Earth, u.Lore, u.Avatar = p.Name, p.Earth, p.Lore, p.Avatar
	u.HasProfile = true
	return nil
}

func (r *UserRepo) SetPresence(_ context.Context, id string, online bool, connID string, seen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Online = online
	u.ConnID = connID
	u.LastSeen = seen
	return nil
}

func (r *UserRepo) ListProfiled(_ context.Context, onlineOnly bool) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.byID))
	for _, u := range r.byID {
		if !u.HasProfile || (onlineOnly && !u.Online) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepo) ResetPresence(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		u.Online = false
		u.ConnID = ""
	}
	return nil
}

// ChannelRepo implements channel.Repository.
type ChannelRepo struct {
	mu       sync.RWMutex
	channels map[string]channel.Channel
}

func NewChannelRepo() *ChannelRepo {
	return &ChannelRepo{channels: make(map[string]channel.Channel)}
}

func (r *ChannelRepo) Create(_ context.Context, c *channel.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[c.ID]; ok {
		return channel.ErrExists
	}
	cp := *c
	cp.Members = append([]string(nil), c.Members...)
	r.channels[c.ID] = cp
	return nil
}

func (r *ChannelRepo) Get(_ context.Context, id string) (*channel.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.channels[id]
	if !ok {
		return nil, channel.ErrNotFound
	}
	return &c, nil
}

func (r *ChannelRepo) List(_ context.Context) ([]channel.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]channel.Channel, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MessageRepo implements message.Repository with one slice per channel kept in
// insertion order.
type MessageRepo struct {
	mu        sync.RWMutex
	byChannel map[string][]*message.Message
	byID      map[string]*message.Message
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{
		byChannel: make(map[string][]*message.Message),
		byID:      make(map[string]*message.Message),
	}
}

func (r *MessageRepo) Insert(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *m
	r.byID[m.ID] = &cp
	list := append(r.byChannel[m.ChannelID], &cp)

	// Keep chronological order even if timestamps arrive out of order.
	for i := len(list) - 1; i > 0 && list[i].CreatedAt.Before(list[i-1].CreatedAt); i-- {
		list[i], list[i-1] = list[i-1], list[i]
	}
	r.byChannel[m.ChannelID] = list
	return nil
}

func (r *MessageRepo) Get(_ context.Context, id string) (*message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, message.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MessageRepo) Recent(_ context.Context, channelID string, limit int) ([]message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byChannel[channelID]
	start := 0
	if limit > 0 && len(list) > limit {
		start = len(list) - limit
	}

	out := make([]message.Message, 0, len(list)-start)
	for _, m := range list[start:] {
		out = append(out, *m)
	}
	return out, nil
}

func (r *MessageRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return message.ErrNotFound
	}
	delete(r.byID, id)

	list := r.byChannel[m.ChannelID]
	for i, candidate := range list {
		if candidate.ID == id {
			r.byChannel[m.ChannelID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MessageRepo) Count(_ context.Context, channelID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.byChannel[channelID])), nil
}
