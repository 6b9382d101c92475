package gateway

import (
	"encoding/json"
	"time"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/user"
)

// Client -> server events.
const (
	EventAuthenticate           = "authenticate"
	EventOAuthLogin             = "oauth_login"
	EventSignup                 = "signup"
	EventLogin                  = "login"
	EventJoinChannel            = "joinChannel"
	EventGetChannels            = "getChannels"
	EventCreateChannel          = "createChannel"
	EventGetPrivateConversation = "getPrivateConversation"
	EventGetMembers             = "getMembers"
	EventGetAllUsers            = "getAllUsers"
	EventSaveCharacter          = "saveCharacter"
	EventSendMessage            = "sendMessage"
	EventDeleteMessage          = "deleteMessage"
	EventSetOnline              = "setOnline"
	EventAdminAnnounce          = "admin_announce"
)

// Server -> client events.
const (
	EventMembersUpdate   = "membersUpdate"
	EventChannelCreated  = "channelCreated"
	EventNewMessage      = "newMessage"
	EventMessageDeleted  = "messageDeleted"
	EventAnnouncement    = "announcement"
	EventMessageHistory  = "messageHistory"
	EventPermissions     = "permissions"
	EventForceDisconnect = "force_disconnect"
	EventAck             = "ack"
	EventError           = "error"
)

// Envelope is the frame exchanged in both directions. Requests that carry an AckID
// get exactly one "ack" frame back with the same AckID.
type Envelope struct {
	Event string          `json:"event"`
	AckID string          `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds a frame for event with payload as its data.
func Encode(event, ackID string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Event: event, AckID: ackID, Data: data})
}

// Result is the common part of every ack.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func ok() Result { return Result{Success: true} }

// ErrorPayload is the data of an "error" frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- requests ---

type identityRequest struct {
	UID string `json:"uid"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	PowToken string `json:"powToken,omitempty"`
}

type channelRequest struct {
	ChannelID string `json:"channelId"`
	Limit     int    `json:"limit,omitempty"`
}

type createChannelRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

type privateConversationRequest struct {
	TargetID string `json:"targetId"`
}

type characterRequest struct {
	Name   string `json:"name"`
	Earth  string `json:"earth"`
	Lore   string `json:"lore"`
	Avatar string `json:"avatar"`
}

type sendMessageRequest struct {
	Channel   string         `json:"channel"`
	Text      string         `json:"text"`
	MediaURL  string         `json:"mediaUrl,omitempty"`
	MediaType string         `json:"mediaType,omitempty"`
	ReplyTo   *message.Reply `json:"replyTo,omitempty"`
}

type deleteMessageRequest struct {
	Channel   string `json:"channel"`
	MessageID string `json:"messageId"`
}

type announceRequest struct {
	Text string `json:"text"`
}

// --- results and broadcasts ---

type profileView struct {
	Name    string `json:"name"`
	Earth   string `json:"earth"`
	Lore    string `json:"lore"`
	Avatar  string `json:"avatar"`
	IsAdmin bool   `json:"isAdmin"`
}

type identityResult struct {
	Result
	UID        string       `json:"uid"`
	HasProfile bool         `json:"hasProfile"`
	Profile    *profileView `json:"profile"`
}

type channelsResult struct {
	Result
	Channels []channel.Channel `json:"channels"`
}

type channelResult struct {
	Result
	Channel *channel.Channel `json:"channel"`
}

type conversationResult struct {
	Result
	ChannelID string `json:"channelId"`
}

type membersResult struct {
	Result
	Members []user.Member `json:"members"`
}

type sendResult struct {
	Result
	ID string `json:"id"`
}

type historyPayload struct {
	Channel  string        `json:"channel"`
	Messages []MessageView `json:"messages"`
}

type newMessagePayload struct {
	Channel string      `json:"channel"`
	Message MessageView `json:"message"`
}

type messageDeletedPayload struct {
	Channel   string `json:"channel"`
	MessageID string `json:"messageId"`
}

type permissionsPayload struct {
	IsAdmin bool `json:"isAdmin"`
}

type announcementPayload struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
}

type forceDisconnectPayload struct {
	Reason string `json:"reason"`
	Code   int    `json:"code"`
}

// MessageView is a message as clients render it.
type MessageView struct {
	ID         string         `json:"id"`
	Channel    string         `json:"channel"`
	UserID     string         `json:"userId"`
	UserName   string         `json:"userName"`
	UserEarth  string         `json:"userEarth,omitempty"`
	UserAvatar string         `json:"userAvatar"`
	Text       string         `json:"text"`
	MediaURL   string         `json:"mediaUrl,omitempty"`
	MediaType  string         `json:"mediaType,omitempty"`
	Type       string         `json:"type"`
	ReplyTo    *message.Reply `json:"replyTo,omitempty"`
	Timestamp  int64          `json:"timestamp"`
	IsAdmin    bool           `json:"isAdmin"`
}

func viewOf(m *message.Message, isAdmin bool) MessageView {
	v := MessageView{
		ID:         m.ID,
		Channel:    m.ChannelID,
		UserID:     m.AuthorID,
		UserName:   m.AuthorName,
		UserEarth:  m.AuthorEarth,
		UserAvatar: m.AuthorAvatar,
		Text:       m.Text,
		MediaURL:   m.MediaURL,
		Type:       m.Type,
		ReplyTo:    m.ReplyTo,
		Timestamp:  m.CreatedAt.UnixMilli(),
		IsAdmin:    isAdmin,
	}
	if m.Type == message.TypeImage || m.Type == message.TypeVideo {
		v.MediaType = m.Type
	}
	return v
}

func nowMillis() int64 { return time.Now().UnixMilli() }
