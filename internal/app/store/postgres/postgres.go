/*
Package postgres implements the user, channel and message repositories on a pgx pool.
The schema lives in internal/app/db/migrations.
*/
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/db"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/user"
)

// UserRepo implements user.Repository.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, handle, COALESCE(email, ''), password_hash, COALESCE(google_id, ''), COALESCE(github_id, ''),
	name, earth, lore, avatar, has_profile, online, conn_id, last_seen, created_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Handle, &u.Email, &u.PasswordHash, &u.GoogleID, &u.GithubID,
		&u.Name, &u.Earth, &u.Lore, &u.Avatar, &u.HasProfile, &u.Online, &u.ConnID, &u.LastSeen, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, handle, email, password_hash, google_id, github_id, last_seen, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)`
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Handle, u.Email, u.PasswordHash, u.GoogleID, u.GithubID, u.LastSeen, u.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return user.ErrAlreadyExists
	}
	return err
}

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*user.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if db.IsNoRows(err) {
		return nil, user.ErrNotFound
	}
	return u, err
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*user.User, error) {
	return r.get(ctx, "handle = $1", handle)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, earth = $3, lore = $4, avatar = $5, has_profile = TRUE
		WHERE id = $1`,
		id, p.Name, p.Earth, p.Lore, p.Avatar,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetPresence(ctx context.Context, id string, online bool, connID string, seen time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET online = $2, conn_id = $3, last_seen = $4 WHERE id = $1`,
		id, online, connID, seen,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) ListProfiled(ctx context.Context, onlineOnly bool) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE has_profile`
	if onlineOnly {
		query += ` AND online`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepo) ResetPresence(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET online = FALSE, conn_id = '' WHERE online OR conn_id <> ''`)
	return err
}

// ChannelRepo implements channel.Repository.
type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

func (r *ChannelRepo) Create(ctx context.Context, c *channel.Channel) error {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channels (id, name, type, members, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Type, members, c.CreatedBy, c.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return channel.ErrExists
	}
	return err
}

func scanChannel(row pgx.Row) (*channel.Channel, error) {
	var c channel.Channel
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Members, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	if len(c.Members) == 0 {
		c.Members = nil
	}
	return &c, nil
}

func (r *ChannelRepo) Get(ctx context.Context, id string) (*channel.Channel, error) {
	c, err := scanChannel(r.pool.QueryRow(ctx,
		`SELECT id, name, type, members, created_by, created_at FROM channels WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, channel.ErrNotFound
	}
	return c, err
}

func (r *ChannelRepo) List(ctx context.Context) ([]channel.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, type, members, created_by, created_at FROM channels ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []channel.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *c)
	}
	return channels, rows.Err()
}

// MessageRepo implements message.Repository.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, channel_id, author_id, author_name, author_avatar, author_earth,
	text, media_url, type, reply_to, created_at`

func scanMessage(row pgx.Row) (*message.Message, error) {
	var (
		m     message.Message
		reply []byte
	)
	err := row.Scan(
		&m.ID, &m.ChannelID, &m.AuthorID, &m.AuthorName, &m.AuthorAvatar, &m.AuthorEarth,
		&m.Text, &m.MediaURL, &m.Type, &reply, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(reply) > 0 {
		m.ReplyTo = &message.Reply{}
		if err := json.Unmarshal(reply, m.ReplyTo); err != nil {
			return nil, fmt.Errorf("decode reply_to of %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *MessageRepo) Insert(ctx context.Context, m *message.Message) error {
	var reply []byte
	if m.ReplyTo != nil {
		var err error
		if reply, err = json.Marshal(m.ReplyTo); err != nil {
			return fmt.Errorf("encode reply_to: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, channel_id, author_id, author_name, author_avatar, author_earth,
			text, media_url, type, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.ChannelID, m.AuthorID, m.AuthorName, m.AuthorAvatar, m.AuthorEarth,
		m.Text, m.MediaURL, m.Type, reply, m.CreatedAt,
	)
	return err
}

func (r *MessageRepo) Get(ctx context.Context, id string) (*message.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, message.ErrNotFound
	}
	return m, err
}

func (r *MessageRepo) Recent(ctx context.Context, channelID string, limit int) ([]message.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE channel_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		channelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query yields newest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return message.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) Count(ctx context.Context, channelID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE channel_id = $1`, channelID).Scan(&n)
	return n, err
}
