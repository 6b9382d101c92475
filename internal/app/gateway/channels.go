package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/pkg/errs"
)

// checkAccess rejects reads and writes on direct channels by non-participants and
// on private channels by non-members. Unknown ids are open: channels are not
// validated for existence.
func (g *Gateway) checkAccess(ctx context.Context, channelID, userID string) error {
	if channel.IsDirect(channelID) {
		if !channel.IsParticipant(channelID, userID) {
			return errs.NewError(errs.ErrForbidden)
		}
		return nil
	}

	c, err := g.channels.Get(ctx, channelID)
	if errors.Is(err, channel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !c.CanRead(userID) {
		return errs.NewError(errs.ErrForbidden)
	}
	return nil
}

// audience returns the users allowed to receive events of channelID. scoped is
// false for channels open to everyone. member is a user known to belong to the
// channel, used to find the other side of a direct conversation.
func (g *Gateway) audience(ctx context.Context, channelID, member string) (users []string, scoped bool) {
	if channel.IsDirect(channelID) {
		other, ok := channel.OtherParticipant(channelID, member)
		if !ok {
			return nil, true
		}
		if other == member {
			return []string{member}, true
		}
		return []string{member, other}, true
	}

	c, err := g.channels.Get(ctx, channelID)
	if err != nil {
		if !errors.Is(err, channel.ErrNotFound) {
			g.logger.Error().Err(err).Str("channel_id", channelID).Msg("Failed to load channel, withholding event")
			return nil, true
		}
		return nil, false
	}
	if c.Type == channel.TypePrivate {
		return c.Members, true
	}
	return nil, false
}

// publishIn delivers event to everyone who may read channelID.
func (g *Gateway) publishIn(ctx context.Context, channelID, member, event string, payload any) {
	users, scoped := g.audience(ctx, channelID, member)
	if !scoped {
		g.publish(ctx, event, payload)
		return
	}
	g.sendToUsers(users, event, payload)
}

// sendToUsers delivers event to the current connection of each user on this instance.
func (g *Gateway) sendToUsers(userIDs []string, event string, payload any) {
	sessions := g.presence.Sessions()
	for _, id := range userIDs {
		if connID, ok := sessions.ConnFor(id); ok {
			g.hub.SendTo(connID, event, payload)
		}
	}
}

// handleJoinChannel sends the channel's recent history to the caller only.
func (g *Gateway) handleJoinChannel(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	req, err := decode[channelRequest](data)
	if err != nil {
		return nil, err
	}

	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	userID, _ := g.presence.Lookup(p.ID())
	if err := g.checkAccess(ctx, channelID, userID); err != nil {
		return nil, err
	}

	msgs, err := g.messages.History(ctx, channelID, req.Limit)
	if err != nil {
		return nil, err
	}

	admins := g.adminAuthors(ctx, msgs)
	views := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, viewOf(&msgs[i], admins[msgs[i].AuthorID]))
	}

	g.send(p, EventMessageHistory, "", historyPayload{Channel: channelID, Messages: views})
	return nil, nil
}

// adminAuthors returns the ids among the authors of msgs that belong to the admin.
func (g *Gateway) adminAuthors(ctx context.Context, msgs []message.Message) map[string]bool {
	admins := make(map[string]bool)

	adminID, ok := g.users.AdminID(ctx)
	if !ok {
		return admins
	}
	for _, m := range msgs {
		if m.AuthorID == adminID {
			admins[adminID] = true
			break
		}
	}
	return admins
}

// handleGetChannels lists the channels the caller can see.
func (g *Gateway) handleGetChannels(ctx context.Context, p Peer, _ json.RawMessage) (any, error) {
	all, err := g.channels.List(ctx)
	if err != nil {
		return nil, err
	}

	userID, _ := g.presence.Lookup(p.ID())
	visible := make([]channel.Channel, 0, len(all))
	for i := range all {
		if all[i].CanRead(userID) {
			visible = append(visible, all[i])
		}
	}

	return channelsResult{Result: ok(), Channels: visible}, nil
}

func (g *Gateway) handleCreateChannel(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	u, err := g.currentUser(ctx, p)
	if err != nil {
		return nil, err
	}

	req, err := decode[createChannelRequest](data)
	if err != nil {
		return nil, err
	}

	c, err := g.channels.Create(ctx, req.Name, req.Members, u.ID)
	if err != nil {
		return nil, err
	}

	if c.Type == channel.TypePrivate {
		g.sendToUsers(c.Members, EventChannelCreated, c)
	} else {
		g.publish(ctx, EventChannelCreated, c)
	}
	return channelResult{Result: ok(), Channel: c}, nil
}

func (g *Gateway) handleGetPrivateConversation(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	u, err := g.currentUser(ctx, p)
	if err != nil {
		return nil, err
	}

	req, err := decode[privateConversationRequest](data)
	if err != nil {
		return nil, err
	}

	target := strings.TrimSpace(req.TargetID)
	if target == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	return conversationResult{Result: ok(), ChannelID: channel.ResolveDirect(u.ID, target)}, nil
}
