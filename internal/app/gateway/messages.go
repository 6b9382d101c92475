package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/pkg/errs"
)

// handleSendMessage stores a message and broadcasts it. Only users with a completed
// profile may post, and only the admin may post to restricted channels.
func (g *Gateway) handleSendMessage(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	u, err := g.profiledUser(ctx, p)
	if err != nil {
		return nil, err
	}

	req, err := decode[sendMessageRequest](data)
	if err != nil {
		return nil, err
	}

	channelID := strings.TrimSpace(req.Channel)
	if channelID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	isAdmin := g.users.IsAdmin(u)
	if channel.IsRestricted(channelID) && !isAdmin {
		return nil, errs.NewError(errs.ErrForbidden)
	}
	if err := g.checkAccess(ctx, channelID, u.ID); err != nil {
		return nil, err
	}

	draft := message.Draft{
		ChannelID:    channelID,
		AuthorID:     u.ID,
		AuthorName:   u.Name,
		AuthorAvatar: g.users.AvatarFor(u),
		AuthorEarth:  u.Earth,
		Text:         req.Text,
		MediaURL:     strings.TrimSpace(req.MediaURL),
	}
	if draft.MediaURL != "" {
		draft.Type = message.TypeImage
		if req.MediaType == message.TypeVideo {
			draft.Type = message.TypeVideo
		}
	}
	if req.ReplyTo != nil && req.ReplyTo.ID != "" {
		draft.ReplyTo = req.ReplyTo
	}

	m, err := g.messages.Append(ctx, draft)
	if err != nil {
		return nil, err
	}

	g.publishIn(ctx, m.ChannelID, u.ID, EventNewMessage, newMessagePayload{Channel: m.ChannelID, Message: viewOf(m, isAdmin)})
	return sendResult{Result: ok(), ID: m.ID}, nil
}

// handleDeleteMessage removes a message. Authors may delete their own messages,
// the admin may delete any.
func (g *Gateway) handleDeleteMessage(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	u, err := g.currentUser(ctx, p)
	if err != nil {
		return nil, err
	}

	req, err := decode[deleteMessageRequest](data)
	if err != nil {
		return nil, err
	}
	if req.MessageID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	m, err := g.messages.Get(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}

	if m.AuthorID != u.ID && !g.users.IsAdmin(u) {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	if err := g.messages.Remove(ctx, m.ID); err != nil {
		return nil, err
	}

	g.logger.Info().Str("message_id", m.ID).Str("channel_id", m.ChannelID).Str("by", u.ID).Msg("Message deleted")
	g.publishIn(ctx, m.ChannelID, m.AuthorID, EventMessageDeleted, messageDeletedPayload{Channel: m.ChannelID, MessageID: m.ID})
	return nil, nil
}

func (g *Gateway) handleAdminAnnounce(ctx context.Context, p Peer, data json.RawMessage) (any, error) {
	u, err := g.currentUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if !g.users.IsAdmin(u) {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	req, err := decode[announceRequest](data)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		return nil, errs.NewError(errs.ErrMessageEmpty)
	case len(text) > message.MaxTextBytes:
		return nil, errs.NewError(errs.ErrMessageContentTooLong)
	}

	g.publish(ctx, EventAnnouncement, announcementPayload{Text: text, Author: u.Name, Timestamp: nowMillis()})
	return nil, nil
}
