package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/errs"
)

const (
	archiveBotName   = "🕷️ ARCHIVE BOT"
	archiveBotAvatar = "lyla.png"
)

func (g *Gateway) identityResultFor(u *user.User) identityResult {
	res := identityResult{Result: ok(), UID: u.ID, HasProfile: u.HasProfile}
	if u.HasProfile {
		res.Profile = &profileView{
			Name:    u.Name,
			Earth:   u.Earth,
			Lore:    u.Lore,
			Avatar:  g.users.AvatarFor(u),
			IsAdmin: g.users.IsAdmin(u),
		}
	}
	return res
}

// bind attaches u to the connection and tells the connection what it may do.
func (g *Gateway) bind(ctx context.Context, p Peer, userID string) (*user.User, error) {
	u, err := g.presence.Authenticate(ctx, p.ID(), userID)
	if err != nil {
		return nil, err
	}
	g.send(p, EventPermissions, "", permissionsPayload{IsAdmin: g.users.IsAdmin(u)})
	return u, nil
}

// currentUser returns the user bound to p.
func (g *Gateway) currentUser(ctx context.Context, p Peer) (*user.User, error) {
	userID, ok := g.presence.Lookup(p.ID())
	if !ok {
		return nil, errs.NewError(errs.ErrNotAuthenticated)
	}
	return g.users.Get(ctx, userID)
}

// profiledUser returns the user bound to p, who must have completed a profile.
func (g *Gateway) profiledUser(ctx context.Context, p Peer) (*user.User, error) {
	u, err := g.currentUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if !u.HasProfile {
		return nil, errs.NewError(errs.ErrProfileRequired)
	}
	return u, nil
}

// verifiedIdentity returns the user p has proven to be: the session cookie's user,
// or the user bound by signup or login on this connection.
func (g *Gateway) verifiedIdentity(p Peer) string {
	if id := p.Identity(); id != "" {
		return id
	}
	id, _ := g.presence.Lookup(p.ID())
	return id
}

// handleAuthenticate binds the connection to its verified user. A uid in the request
// must name that user; connections that have proven nothing are refused.
func (g *Gateway) handleAuthenticate(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	req, err := decode[identityRequest](data)
	if err != nil {
		return nil, err
	}

	uid := strings.TrimSpace(req.UID)
	verified := g.verifiedIdentity(p)

	switch {
	case uid == "" && verified == "":
		return nil, errs.NewError(errs.ErrInvalidParams)
	case verified == "":
		g.logger.Warn().Str("conn_id", p.ID()).Str("claimed_uid", uid).Msg("Unverified connection tried to authenticate")
		return nil, errs.NewError(errs.ErrUnauthorized)
	case uid == "":
		uid = verified
	case uid != verified:
		return nil, errs.NewError(errs.ErrIdentityMismatch)
	}

	u, err := g.bind(ctx, p, uid)
	if err != nil {
		return nil, err
	}
	return g.identityResultFor(u), nil
}

func (g *Gateway) handleSignup(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	if p.Identity() != "" {
		return nil, errs.NewError(errs.ErrAlreadyLoggedIn)
	}

	req, err := decode[credentialsRequest](data)
	if err != nil {
		return nil, err
	}

	if g.pow.Enabled() && !g.pow.ConsumeToken(req.PowToken) {
		if req.PowToken == "" {
			return nil, errs.NewError(errs.ErrPowChallengeRequired)
		}
		return nil, errs.NewError(errs.ErrPowChallengeInvalid)
	}

	u, err := g.users.Signup(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	u, err = g.bind(ctx, p, u.ID)
	if err != nil {
		return nil, err
	}
	return g.identityResultFor(u), nil
}

func (g *Gateway) handleLogin(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	req, err := decode[credentialsRequest](data)
	if err != nil {
		return nil, err
	}

	u, err := g.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if verified := p.Identity(); verified != "" && verified != u.ID {
		return nil, errs.NewError(errs.ErrIdentityMismatch)
	}

	u, err = g.bind(ctx, p, u.ID)
	if err != nil {
		return nil, err
	}
	return g.identityResultFor(u), nil
}

// handleSaveCharacter stores the profile, files an entry in the lore archive and
// refreshes everyone's member list.
func (g *Gateway) handleSaveCharacter(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	u, err := g.currentUser(ctx, p)
	if err != nil {
		return nil, err
	}

	req, err := decode[characterRequest](data)
	if err != nil {
		return nil, err
	}

	saved, err := g.users.SaveProfile(ctx, u.ID, user.Profile{
		Name:   req.Name,
		Earth:  req.Earth,
		Lore:   req.Lore,
		Avatar: req.Avatar,
	})
	if err != nil {
		return nil, err
	}

	entry, err := g.messages.Append(ctx, message.Draft{
		ChannelID:    channel.LoreArchiveID,
		AuthorID:     message.SystemAuthorID,
		AuthorName:   archiveBotName,
		AuthorAvatar: archiveBotAvatar,
		Text:         fmt.Sprintf("[NEW ENTRY] **%s** (%s)\n\n%s", saved.Name, saved.Earth, saved.Lore),
		Type:         message.TypeSystem,
	})
	if err != nil {
		g.logger.Error().Err(err).Str("user_id", saved.ID).Msg("Failed to write lore archive entry")
	} else {
		g.publish(ctx, EventNewMessage, newMessagePayload{Channel: entry.ChannelID, Message: viewOf(entry, false)})
	}

	g.presence.Broadcast(ctx)
	return g.identityResultFor(saved), nil
}

func (g *Gateway) handleSetOnline(ctx context.Context, p Peer, _ json.RawMessage) (any, error) {
	if err := g.presence.Refresh(ctx, p.ID()); err != nil {
		return nil, err
	}
	return nil, nil
}

func (g *Gateway) handleGetMembers(ctx context.Context, _ Peer, _ json.RawMessage) (any, error) {
	members, err := g.users.Online(ctx)
	if err != nil {
		return nil, err
	}
	return membersResult{Result: ok(), Members: members}, nil
}

func (g *Gateway) handleGetAllUsers(ctx context.Context, _ Peer, _ json.RawMessage) (any, error) {
	members, err := g.users.All(ctx)
	if err != nil {
		return nil, err
	}
	return membersResult{Result: ok(), Members: members}, nil
}
