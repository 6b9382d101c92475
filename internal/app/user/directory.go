package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/randx"
	"spiderlink/internal/pkg/validator"
)

// Directory owns account creation, credential checks, profiles and the online flag.
type Directory struct {
	repo        Repository
	adminEmail  string
	adminAvatar string
	now         func() time.Time
	logger      zerolog.Logger

	// adminID caches the admin account's id once it exists.
	adminMu sync.RWMutex
	adminID string
}

// NewDirectory creates a Directory. adminEmail identifies the single admin account;
// an empty value means nobody is admin. adminAvatar replaces whatever avatar the admin picks.
func NewDirectory(repo Repository, adminEmail, adminAvatar string) *Directory {
	return &Directory{
		repo:        repo,
		adminEmail:  strings.ToLower(strings.TrimSpace(adminEmail)),
		adminAvatar: adminAvatar,
		now:         time.Now,
		logger:      logx.Component("user_directory"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an account whose login handle is the lower-cased email.
func (d *Directory) Signup(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	if verr := validator.ValidateCredentials(email, password); verr.HasErrors() {
		if msg, ok := verr["email"]; ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, msg)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPassword, verr["password"])
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := d.now()
	u := &User{
		ID:           randx.ID(),
		Handle:       email,
		Email:        email,
		PasswordHash: string(hash),
		LastSeen:     now,
		CreatedAt:    now,
	}

	if err := d.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	d.logger.Info().Str("user_id", u.ID).Msg("User signed up")
	return u, nil
}

// Login verifies an email/password pair. Unknown accounts and wrong passwords are
// indistinguishable to the caller.
func (d *Directory) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := d.repo.GetByHandle(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// Get returns a user by id or ErrNotFound.
func (d *Directory) Get(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	return d.repo.GetByID(ctx, id)
}

// SaveProfile validates and stores the character sheet, marking the profile complete.
// The admin's avatar is always the configured admin avatar.
func (d *Directory) SaveProfile(ctx context.Context, id string, p Profile) (*User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Earth = strings.TrimSpace(p.Earth)
	p.Lore = strings.TrimSpace(p.Lore)
	p.Avatar = strings.TrimSpace(p.Avatar)

	if verr := validator.ValidateProfile(p.Name, p.Earth, p.Lore, p.Avatar); verr.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrProfileInvalid, verr.Error())
	}

	u, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.IsAdmin(u) {
		p.Avatar = d.adminAvatar
	}

	if err := d.repo.UpdateProfile(ctx, id, p); err != nil {
		return nil, err
	}

	u.Name, u.Earth, u.Lore, u.Avatar = p.Name, p.Earth, p.Lore, p.Avatar
	u.HasProfile = true

	d.logger.Info().Str("user_id", id).Str("name", p.Name).Msg("Character profile saved")
	return u, nil
}

// IsAdmin reports whether u is the configured admin account.
func (d *Directory) IsAdmin(u *User) bool {
	return u != nil && d.adminEmail != "" && u.Email == d.adminEmail
}

// AdminID returns the id of the admin account. ok is false while no admin is
// configured or the account has not signed up yet.
func (d *Directory) AdminID(ctx context.Context) (string, bool) {
	if d.adminEmail == "" {
		return "", false
	}

	d.adminMu.RLock()
	id := d.adminID
	d.adminMu.RUnlock()
	if id != "" {
		return id, true
	}

	u, err := d.repo.GetByHandle(ctx, d.adminEmail)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			d.logger.Error().Err(err).Msg("Failed to look up admin account")
		}
		return "", false
	}

	d.adminMu.Lock()
	d.adminID = u.ID
	d.adminMu.Unlock()
	return u.ID, true
}

// AvatarFor returns the avatar to show for u, applying the admin override.
func (d *Directory) AvatarFor(u *User) string {
	if d.IsAdmin(u) {
		return d.adminAvatar
	}
	return u.Avatar
}

// MemberOf converts u into its public member view.
func (d *Directory) MemberOf(u *User) Member {
	return Member{
		UID:     u.ID,
		Name:    u.Name,
		Earth:   u.Earth,
		Avatar:  d.AvatarFor(u),
		Online:  u.Online,
		IsAdmin: d.IsAdmin(u),
	}
}

// MarkOnline flags the user online on the given connection.
func (d *Directory) MarkOnline(ctx context.Context, id, connID string) error {
	return d.repo.SetPresence(ctx, id, true, connID, d.now())
}

// MarkOffline flags the user offline and records the time.
func (d *Directory) MarkOffline(ctx context.Context, id string) error {
	return d.repo.SetPresence(ctx, id, false, "", d.now())
}

// Online lists online users with a completed profile.
func (d *Directory) Online(ctx context.Context) ([]Member, error) {
	return d.members(ctx, true)
}

// All lists every user with a completed profile.
func (d *Directory) All(ctx context.Context) ([]Member, error) {
	return d.members(ctx, false)
}

func (d *Directory) members(ctx context.Context, onlineOnly bool) ([]Member, error) {
	users, err := d.repo.ListProfiled(ctx, onlineOnly)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(users))
	for i := range users {
		members = append(members, d.MemberOf(&users[i]))
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Online != members[j].Online {
			return members[i].Online
		}
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})

	return members, nil
}

// ResetPresence marks every user offline. Run once at startup, before accepting connections.
func (d *Directory) ResetPresence(ctx context.Context) error {
	if err := d.repo.ResetPresence(ctx); err != nil {
		return fmt.Errorf("reset presence: %w", err)
	}
	d.logger.Info().Msg("Presence reset, all users offline")
	return nil
}
