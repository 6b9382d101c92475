package gateway

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/presence"
	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/pow"
)

type handlerFunc func(ctx context.Context, p Peer, data json.RawMessage) (any, error)

// Deps are the services the Gateway calls into.
type Deps struct {
	Hub      *Hub
	Presence *presence.Coordinator
	Users    *user.Directory
	Channels *channel.Registry
	Messages *message.Service

	// Pow gates socket signup. Nil or difficulty 0 disables the gate.
	Pow *pow.Manager
}

// Gateway turns request frames into service calls.
type Gateway struct {
	hub      *Hub
	presence *presence.Coordinator
	users    *user.Directory
	channels *channel.Registry
	messages *message.Service
	pow      *pow.Manager

	handlers map[string]handlerFunc
	logger   zerolog.Logger
}

func New(d Deps) *Gateway {
	g := &Gateway{
		hub:      d.Hub,
		presence: d.Presence,
		users:    d.Users,
		channels: d.Channels,
		messages: d.Messages,
		pow:      d.Pow,
		logger:   logx.Component("gateway"),
	}

	g.handlers = map[string]handlerFunc{
		EventAuthenticate:           g.handleAuthenticate,
		EventOAuthLogin:             g.handleAuthenticate,
		EventSignup:                 g.handleSignup,
		EventLogin:                  g.handleLogin,
		EventSaveCharacter:          g.handleSaveCharacter,
		EventSetOnline:              g.handleSetOnline,
		EventJoinChannel:            g.handleJoinChannel,
		EventGetChannels:            g.handleGetChannels,
		EventCreateChannel:          g.handleCreateChannel,
		EventGetPrivateConversation: g.handleGetPrivateConversation,
		EventGetMembers:             g.handleGetMembers,
		EventGetAllUsers:            g.handleGetAllUsers,
		EventSendMessage:            g.handleSendMessage,
		EventDeleteMessage:          g.handleDeleteMessage,
		EventAdminAnnounce:          g.handleAdminAnnounce,
	}

	return g
}

// Dispatch handles one request frame from p. Requests with an ackId always get one
// ack; failed requests without one get an error frame.
func (g *Gateway) Dispatch(ctx context.Context, p Peer, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		g.logger.Warn().Err(err).Str("conn_id", p.ID()).Msg("Client sent invalid frame")
		g.reply(p, env.AckID, nil, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	handle, ok := g.handlers[env.Event]
	if !ok {
		g.logger.Warn().Str("conn_id", p.ID()).Str("event", env.Event).Msg("Client sent unknown event")
		g.reply(p, env.AckID, nil, errs.NewError(errs.ErrUnknownEvent, env.Event))
		return
	}

	result, err := handle(ctx, p, env.Data)
	g.reply(p, env.AckID, result, err)
}

// Disconnect releases the session bound to p.
func (g *Gateway) Disconnect(ctx context.Context, p Peer) {
	g.presence.Disconnect(ctx, p.ID())
}

func (g *Gateway) reply(p Peer, ackID string, result any, err error) {
	if err != nil {
		customErr := AsCustomError(err)

		g.logger.Debug().
			Str("conn_id", p.ID()).
			Int("code", customErr.Code).
			Str("ack_id", ackID).
			Msg("Request rejected")

		if ackID != "" {
			g.send(p, EventAck, ackID, Result{Error: customErr.Message, Code: customErr.Code})
			return
		}
		g.send(p, EventError, "", ErrorPayload{Code: customErr.Code, Message: customErr.Message})
		return
	}

	if ackID == "" {
		return
	}
	if result == nil {
		result = ok()
	}
	g.send(p, EventAck, ackID, result)
}

func (g *Gateway) send(p Peer, event, ackID string, payload any) {
	frame, err := Encode(event, ackID, payload)
	if err != nil {
		g.logger.Error().Err(err).Str("event", event).Msg("Failed to encode frame")
		return
	}
	if !p.Send(frame) {
		g.logger.Warn().Str("conn_id", p.ID()).Str("event", event).Msg("Connection queue full, frame dropped")
	}
}

func (g *Gateway) publish(ctx context.Context, event string, payload any) {
	if err := g.hub.Publish(ctx, event, payload); err != nil {
		g.logger.Error().Err(err).Str("event", event).Msg("Broadcast failed")
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errs.NewError(errs.ErrInvalidParams)
	}
	return v, nil
}

// bareString decodes b when it is a JSON string. Several requests accept either a
// bare id or an object.
func bareString(b []byte) (string, bool) {
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false
	}
	return s, true
}

func (r *identityRequest) UnmarshalJSON(b []byte) error {
	if s, ok := bareString(b); ok {
		r.UID = s
		return nil
	}
	type plain identityRequest
	return json.Unmarshal(b, (*plain)(r))
}

func (r *channelRequest) UnmarshalJSON(b []byte) error {
	if s, ok := bareString(b); ok {
		r.ChannelID = s
		return nil
	}
	type plain channelRequest
	return json.Unmarshal(b, (*plain)(r))
}

func (r *createChannelRequest) UnmarshalJSON(b []byte) error {
	if s, ok := bareString(b); ok {
		r.Name = s
		return nil
	}
	type plain createChannelRequest
	return json.Unmarshal(b, (*plain)(r))
}

func (r *privateConversationRequest) UnmarshalJSON(b []byte) error {
	if s, ok := bareString(b); ok {
		r.TargetID = s
		return nil
	}
	type plain privateConversationRequest
	return json.Unmarshal(b, (*plain)(r))
}
