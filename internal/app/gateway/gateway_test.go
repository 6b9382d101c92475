package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/presence"
	"spiderlink/internal/app/store/memory"
	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/pow"
	"spiderlink/internal/pkg/randx"
)

const testAdminEmail = "miguel@nueva-york.test"

type fakePeer struct {
	id       string
	identity string

	mu     sync.Mutex
	frames []Envelope
	closed bool
	kicked []string
}

func newFakePeer(identity string) *fakePeer {
	return &fakePeer{id: randx.ConnectionID(), identity: identity}
}

func (p *fakePeer) ID() string       { return p.id }
func (p *fakePeer) Identity() string { return p.identity }

func (p *fakePeer) Send(frame []byte) bool {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.frames = append(p.frames, env)
	return true
}

func (p *fakePeer) Kick(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kicked = append(p.kicked, reason)
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// waitFor returns the first frame matching event and match, waiting up to a second.
func (p *fakePeer) waitFor(t *testing.T, event string, match func(Envelope) bool) Envelope {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		for _, env := range p.frames {
			if env.Event == event && (match == nil || match(env)) {
				p.mu.Unlock()
				return env
			}
		}
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("connection %s never received %q", p.id, event)
	return Envelope{}
}

// waitUntil polls the received frames until cond holds, for up to a second.
func (p *fakePeer) waitUntil(t *testing.T, what string, cond func([]Envelope) bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		frames := append([]Envelope(nil), p.frames...)
		p.mu.Unlock()

		if cond(frames) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("connection %s: timed out waiting for %s", p.id, what)
}

func (p *fakePeer) count(event string) int {
	return p.countMatching(event, nil)
}

func (p *fakePeer) countMatching(event string, match func(Envelope) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, env := range p.frames {
		if env.Event == event && (match == nil || match(env)) {
			n++
		}
	}
	return n
}

type ackData struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error"`
	Code       int             `json:"code"`
	UID        string          `json:"uid"`
	HasProfile bool            `json:"hasProfile"`
	ID         string          `json:"id"`
	ChannelID  string          `json:"channelId"`
	Channel    json.RawMessage `json:"channel"`
}

type harness struct {
	gw       *Gateway
	hub      *Hub
	users    *user.Directory
	messages *message.Service
	acks     atomic.Int64
}

func newHarness(t *testing.T, powManager *pow.Manager) *harness {
	t.Helper()

	users := user.NewDirectory(memory.NewUserRepo(), testAdminEmail, "admin.jpg")
	messages := message.NewService(memory.NewMessageRepo(), 0)
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	gw := New(Deps{
		Hub:      hub,
		Presence: presence.NewCoordinator(users, hub),
		Users:    users,
		Channels: channel.NewRegistry(memory.NewChannelRepo()),
		Messages: messages,
		Pow:      powManager,
	})

	return &harness{gw: gw, hub: hub, users: users, messages: messages}
}

func (h *harness) connect(identity string) *fakePeer {
	p := newFakePeer(identity)
	h.hub.Register(p)
	return p
}

// request dispatches event and returns the decoded ack.
func (h *harness) request(t *testing.T, p *fakePeer, event string, data any) ackData {
	t.Helper()

	ackID := fmt.Sprintf("ack-%d", h.acks.Add(1))
	frame, err := Encode(event, ackID, data)
	if err != nil {
		t.Fatalf("encode %s: %v", event, err)
	}

	h.gw.Dispatch(context.Background(), p, frame)

	env := p.waitFor(t, EventAck, func(e Envelope) bool { return e.AckID == ackID })
	var ack ackData
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatalf("decode ack for %s: %v", event, err)
	}
	return ack
}

func (h *harness) mustSucceed(t *testing.T, p *fakePeer, event string, data any) ackData {
	t.Helper()

	ack := h.request(t, p, event, data)
	if !ack.Success {
		t.Fatalf("%s failed: code=%d error=%q", event, ack.Code, ack.Error)
	}
	return ack
}

// agent signs up over p and completes a profile.
func (h *harness) agent(t *testing.T, p *fakePeer, email, name string) string {
	t.Helper()

	ack := h.mustSucceed(t, p, EventSignup, map[string]string{"email": email, "password": "spider-verse"})
	h.mustSucceed(t, p, EventSaveCharacter, map[string]string{"name": name, "earth": "Earth-42", "lore": "Bitten.", "avatar": "spot.png"})
	return ack.UID
}

// inChannel matches newMessage and messageDeleted frames for channelID.
func inChannel(channelID string) func(Envelope) bool {
	return func(e Envelope) bool {
		var p struct {
			Channel string `json:"channel"`
		}
		_ = json.Unmarshal(e.Data, &p)
		return p.Channel == channelID
	}
}

func wantCode(t *testing.T, ack ackData, code int) {
	t.Helper()
	if ack.Success || ack.Code != code {
		t.Fatalf("ack = %+v, want failure with code %d", ack, code)
	}
}

func TestEndToEndMessageReachesOtherConnection(t *testing.T) {
	h := newHarness(t, nil)
	sender := h.connect("")
	observer := h.connect("")

	h.agent(t, sender, "miles@earth42.test", "Prowler")

	ack := h.mustSucceed(t, sender, EventSendMessage, map[string]string{"channel": "hq", "text": "Anomaly at 42"})
	if ack.ID == "" {
		t.Fatal("sendMessage returned no id")
	}

	env := observer.waitFor(t, EventNewMessage, inChannel("hq"))
	var got newMessagePayload
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode newMessage: %v", err)
	}
	if got.Channel != "hq" || got.Message.Text != "Anomaly at 42" || got.Message.UserName != "Prowler" {
		t.Fatalf("newMessage = %+v", got)
	}
	if got.Message.ID != ack.ID || got.Message.Timestamp == 0 {
		t.Fatalf("broadcast message does not match ack: %+v vs %s", got.Message, ack.ID)
	}
}

func TestSendWithoutProfileIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	sender := h.connect("")
	observer := h.connect("")

	h.mustSucceed(t, sender, EventSignup, map[string]string{"email": "nobody@earth0.test", "password": "spider-verse"})

	ack := h.request(t, sender, EventSendMessage, map[string]string{"channel": "hq", "text": "hello?"})
	wantCode(t, ack, errs.ErrProfileRequired)

	// signup and setOnline each broadcast a snapshot. Once the observer has both,
	// every broadcast made in between has arrived too.
	h.mustSucceed(t, sender, EventSetOnline, nil)
	observer.waitUntil(t, "the setOnline snapshot", func([]Envelope) bool {
		return observer.count(EventMembersUpdate) >= 2
	})

	if n := observer.count(EventNewMessage); n != 0 {
		t.Fatalf("observer received %d newMessage frames", n)
	}
	history, _ := h.messages.History(context.Background(), "hq", 0)
	if len(history) != 0 {
		t.Fatalf("hq has %d messages, want 0", len(history))
	}
}

func TestSendUnauthenticated(t *testing.T) {
	h := newHarness(t, nil)
	p := h.connect("")

	wantCode(t, h.request(t, p, EventSendMessage, map[string]string{"channel": "hq", "text": "hi"}), errs.ErrNotAuthenticated)
}

func TestRestrictedChannelsRequireAdmin(t *testing.T) {
	h := newHarness(t, nil)
	agent := h.connect("")
	admin := h.connect("")

	h.agent(t, agent, "gwen@earth65.test", "Ghost-Spider")
	h.agent(t, admin, testAdminEmail, "Miguel")

	for _, ch := range []string{channel.RulesID, channel.LoreArchiveID} {
		wantCode(t, h.request(t, agent, EventSendMessage, map[string]string{"channel": ch, "text": "let me in"}), errs.ErrForbidden)
		h.mustSucceed(t, admin, EventSendMessage, map[string]string{"channel": ch, "text": "Protocol update"})
	}

	env := agent.waitFor(t, EventNewMessage, func(e Envelope) bool {
		var p newMessagePayload
		_ = json.Unmarshal(e.Data, &p)
		return p.Channel == channel.RulesID
	})
	var got newMessagePayload
	_ = json.Unmarshal(env.Data, &got)
	if !got.Message.IsAdmin || got.Message.UserAvatar != "admin.jpg" {
		t.Fatalf("admin message view = %+v", got.Message)
	}
}

func TestDeleteMessage(t *testing.T) {
	h := newHarness(t, nil)
	author := h.connect("")
	other := h.connect("")

	h.agent(t, author, "hobie@earth138.test", "Spider-Punk")
	h.agent(t, other, "pavitr@earth50101.test", "Pavitr")

	sent := h.mustSucceed(t, author, EventSendMessage, map[string]string{"channel": "hq", "text": "down with the system"})
	req := map[string]string{"channel": "hq", "messageId": sent.ID}

	wantCode(t, h.request(t, other, EventDeleteMessage, req), errs.ErrForbidden)

	h.mustSucceed(t, author, EventDeleteMessage, req)

	env := other.waitFor(t, EventMessageDeleted, nil)
	var deleted messageDeletedPayload
	_ = json.Unmarshal(env.Data, &deleted)
	if deleted.MessageID != sent.ID || deleted.Channel != "hq" {
		t.Fatalf("messageDeleted = %+v", deleted)
	}

	wantCode(t, h.request(t, author, EventDeleteMessage, req), errs.ErrMessageNotFound)
}

func TestAdminCanDeleteAnyMessage(t *testing.T) {
	h := newHarness(t, nil)
	author := h.connect("")
	admin := h.connect("")

	h.agent(t, author, "peni@earth14512.test", "Peni")
	h.agent(t, admin, testAdminEmail, "Miguel")

	sent := h.mustSucceed(t, author, EventSendMessage, map[string]string{"channel": "hq", "text": "SP//dr online"})
	h.mustSucceed(t, admin, EventDeleteMessage, map[string]string{"messageId": sent.ID})
}

func TestAuthenticateThenDisconnectUpdatesMembers(t *testing.T) {
	h := newHarness(t, nil)
	first := h.connect("")
	observer := h.connect("")

	uid := h.agent(t, first, "jess@earth332.test", "Spider-Woman")

	reconnect := h.connect(uid)
	ack := h.mustSucceed(t, reconnect, EventAuthenticate, uid)
	if ack.UID != uid || !ack.HasProfile {
		t.Fatalf("authenticate ack = %+v", ack)
	}
	reconnect.waitFor(t, EventPermissions, nil)

	h.gw.Disconnect(context.Background(), reconnect)

	hasUser := func(e Envelope) bool {
		var members []user.Member
		_ = json.Unmarshal(e.Data, &members)
		for _, m := range members {
			if m.UID == uid {
				return true
			}
		}
		return false
	}

	// A snapshot listing the user must be followed by one that does not.
	observer.waitUntil(t, "a snapshot without the user", func(frames []Envelope) bool {
		seen := false
		for _, e := range frames {
			if e.Event != EventMembersUpdate {
				continue
			}
			if hasUser(e) {
				seen = true
			} else if seen {
				return true
			}
		}
		return false
	})
}

func TestAuthenticateErrors(t *testing.T) {
	h := newHarness(t, nil)

	wantCode(t, h.request(t, h.connect("ghost"), EventAuthenticate, nil), errs.ErrUserNotFound)
	wantCode(t, h.request(t, h.connect(""), EventAuthenticate, map[string]string{"uid": "ghost"}), errs.ErrUnauthorized)
	wantCode(t, h.request(t, h.connect(""), EventAuthenticate, nil), errs.ErrInvalidParams)
	wantCode(t, h.request(t, h.connect("cookie-user"), EventOAuthLogin, map[string]string{"uid": "someone-else"}), errs.ErrIdentityMismatch)
}

func TestAuthenticateUsesVerifiedIdentity(t *testing.T) {
	h := newHarness(t, nil)
	u, err := h.users.Signup(context.Background(), "noir@earth90214.test", "black-and-white")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	ack := h.mustSucceed(t, h.connect(u.ID), EventAuthenticate, nil)
	if ack.UID != u.ID {
		t.Fatalf("authenticated as %q, want %q", ack.UID, u.ID)
	}
}

func TestUnverifiedConnectionCannotClaimAdmin(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.connect("")
	intruder := h.connect("")

	adminID := h.agent(t, admin, testAdminEmail, "Miguel")

	// Every connection sees the admin's uid in the members snapshot.
	intruder.waitFor(t, EventMembersUpdate, func(e Envelope) bool {
		var members []user.Member
		_ = json.Unmarshal(e.Data, &members)
		for _, m := range members {
			if m.UID == adminID && m.IsAdmin {
				return true
			}
		}
		return false
	})

	wantCode(t, h.request(t, intruder, EventAuthenticate, adminID), errs.ErrUnauthorized)
	wantCode(t, h.request(t, intruder, EventOAuthLogin, map[string]string{"uid": adminID}), errs.ErrUnauthorized)
	wantCode(t, h.request(t, intruder, EventSendMessage, map[string]string{"channel": channel.RulesID, "text": "I am Miguel now"}), errs.ErrNotAuthenticated)

	// After proving an identity, the intruder may re-authenticate only as itself.
	selfID := h.agent(t, intruder, "spot@earth-x.test", "Spot")
	wantCode(t, h.request(t, intruder, EventAuthenticate, adminID), errs.ErrIdentityMismatch)
	if ack := h.mustSucceed(t, intruder, EventAuthenticate, nil); ack.UID != selfID {
		t.Fatalf("re-authenticated as %q, want %q", ack.UID, selfID)
	}

	rules, _ := h.messages.History(context.Background(), channel.RulesID, 0)
	if len(rules) != 0 {
		t.Fatalf("rules has %d messages, want 0", len(rules))
	}
	if conn, _ := h.gw.presence.Sessions().ConnFor(adminID); conn != admin.ID() {
		t.Fatal("admin session moved to another connection")
	}
}

func TestSecondConnectionKicksFirst(t *testing.T) {
	h := newHarness(t, nil)
	first := h.connect("")

	uid := h.agent(t, first, "ben@earth-x.test", "Scarlet")
	second := h.connect(uid)
	h.mustSucceed(t, second, EventAuthenticate, uid)

	first.mu.Lock()
	kicked := len(first.kicked)
	first.mu.Unlock()
	if kicked != 1 {
		t.Fatalf("first connection kicked %d times, want 1", kicked)
	}

	// The superseded connection going away leaves the user online.
	h.gw.Disconnect(context.Background(), first)
	u, _ := h.users.Get(context.Background(), uid)
	if !u.Online {
		t.Fatal("user went offline when the superseded connection closed")
	}
}

func TestUnknownEvent(t *testing.T) {
	h := newHarness(t, nil)
	p := h.connect("")

	wantCode(t, h.request(t, p, "webShooter", nil), errs.ErrUnknownEvent)

	frame, _ := Encode("webShooter", "", nil)
	h.gw.Dispatch(context.Background(), p, frame)

	env := p.waitFor(t, EventError, nil)
	var payload ErrorPayload
	_ = json.Unmarshal(env.Data, &payload)
	if payload.Code != errs.ErrUnknownEvent || payload.Message != "Unknown event: webShooter" {
		t.Fatalf("error frame = %+v", payload)
	}
}

func TestMalformedFrame(t *testing.T) {
	h := newHarness(t, nil)
	p := h.connect("")

	h.gw.Dispatch(context.Background(), p, []byte("{not json"))

	env := p.waitFor(t, EventError, nil)
	var payload ErrorPayload
	_ = json.Unmarshal(env.Data, &payload)
	if payload.Code != errs.ErrInvalidJSONFormat {
		t.Fatalf("error frame = %+v", payload)
	}
}

func TestJoinChannelSendsHistoryToCallerOnly(t *testing.T) {
	h := newHarness(t, nil)
	sender := h.connect("")
	reader := h.connect("")

	h.agent(t, sender, "margo@earth-b.test", "Spider-Byte")
	for i := 0; i < 3; i++ {
		h.mustSucceed(t, sender, EventSendMessage, map[string]string{"channel": "tech-support", "text": fmt.Sprintf("log %d", i)})
	}

	h.mustSucceed(t, reader, EventJoinChannel, "tech-support")

	env := reader.waitFor(t, EventMessageHistory, nil)
	var history historyPayload
	_ = json.Unmarshal(env.Data, &history)
	if history.Channel != "tech-support" || len(history.Messages) != 3 {
		t.Fatalf("history = %+v", history)
	}
	if history.Messages[0].Text != "log 0" || history.Messages[2].Text != "log 2" {
		t.Fatalf("history out of order: %+v", history.Messages)
	}
	if sender.count(EventMessageHistory) != 0 {
		t.Fatal("history was sent to another connection")
	}
}

func TestHistoryMarksAdminMessages(t *testing.T) {
	h := newHarness(t, nil)
	admin, agent, reader := h.connect(""), h.connect(""), h.connect("")

	h.agent(t, admin, testAdminEmail, "Miguel")
	h.agent(t, agent, "lyla@earth928.test", "Lyla")

	h.mustSucceed(t, admin, EventSendMessage, map[string]string{"channel": "hq", "text": "Stand down"})
	h.mustSucceed(t, agent, EventSendMessage, map[string]string{"channel": "hq", "text": "Copy"})

	h.mustSucceed(t, reader, EventJoinChannel, "hq")
	env := reader.waitFor(t, EventMessageHistory, nil)

	var history historyPayload
	_ = json.Unmarshal(env.Data, &history)
	if len(history.Messages) != 2 {
		t.Fatalf("history = %+v", history)
	}
	if !history.Messages[0].IsAdmin || history.Messages[1].IsAdmin {
		t.Fatalf("admin flags = %v, %v; want true, false", history.Messages[0].IsAdmin, history.Messages[1].IsAdmin)
	}
}

func TestDirectChannelAccess(t *testing.T) {
	h := newHarness(t, nil)
	a, b, outsider := h.connect(""), h.connect(""), h.connect("")

	aID := h.agent(t, a, "a@earth1.test", "A")
	bID := h.agent(t, b, "b@earth2.test", "B")
	h.agent(t, outsider, "c@earth3.test", "C")

	conv := h.mustSucceed(t, a, EventGetPrivateConversation, map[string]string{"targetId": bID})
	if conv.ChannelID != channel.ResolveDirect(bID, aID) {
		t.Fatalf("conversation id = %q", conv.ChannelID)
	}

	h.mustSucceed(t, a, EventSendMessage, map[string]string{"channel": conv.ChannelID, "text": "psst"})
	h.mustSucceed(t, b, EventJoinChannel, map[string]string{"channelId": conv.ChannelID})

	wantCode(t, h.request(t, outsider, EventJoinChannel, conv.ChannelID), errs.ErrForbidden)
	wantCode(t, h.request(t, outsider, EventSendMessage, map[string]string{"channel": conv.ChannelID, "text": "hi"}), errs.ErrForbidden)
}

func TestDirectMessagesReachParticipantsOnly(t *testing.T) {
	h := newHarness(t, nil)
	a, b, eve := h.connect(""), h.connect(""), h.connect("")

	h.agent(t, a, "peni@earth14512.test", "Peni")
	bID := h.agent(t, b, "noir@earth90214.test", "Noir")
	h.agent(t, eve, "eve@earth-x.test", "Eve")

	conv := h.mustSucceed(t, a, EventGetPrivateConversation, map[string]string{"targetId": bID})
	sent := h.mustSucceed(t, a, EventSendMessage, map[string]string{"channel": conv.ChannelID, "text": "secret"})
	b.waitFor(t, EventNewMessage, inChannel(conv.ChannelID))
	a.waitFor(t, EventNewMessage, inChannel(conv.ChannelID))

	h.mustSucceed(t, a, EventDeleteMessage, map[string]string{"messageId": sent.ID})
	b.waitFor(t, EventMessageDeleted, inChannel(conv.ChannelID))

	// Broadcasts are ordered, so once Eve has this one she would also have any
	// earlier frame meant for her.
	h.mustSucceed(t, a, EventSendMessage, map[string]string{"channel": "hq", "text": "all clear"})
	eve.waitFor(t, EventNewMessage, inChannel("hq"))

	direct := inChannel(conv.ChannelID)
	if n := eve.countMatching(EventNewMessage, direct) + eve.countMatching(EventMessageDeleted, direct); n != 0 {
		t.Fatalf("outsider saw %d frames from a direct conversation", n)
	}
}

func TestPrivateChannelCreatedReachesMembersOnly(t *testing.T) {
	h := newHarness(t, nil)
	creator, member, outsider := h.connect(""), h.connect(""), h.connect("")

	h.agent(t, creator, "jessica@earth332.test", "Jessica")
	memberID := h.agent(t, member, "ben@earth928b.test", "Ben")
	h.agent(t, outsider, "eve@earth-x.test", "Eve")

	h.mustSucceed(t, creator, EventCreateChannel, map[string]any{"name": "War Room", "members": []string{memberID}})
	member.waitFor(t, EventChannelCreated, hasChannelID("war-room"))

	h.mustSucceed(t, creator, EventCreateChannel, map[string]any{"name": "Open Room"})
	outsider.waitFor(t, EventChannelCreated, hasChannelID("open-room"))

	if n := outsider.count(EventChannelCreated); n != 1 {
		t.Fatalf("outsider got %d channelCreated frames, want 1", n)
	}
}

// hasChannelID matches channelCreated frames for id.
func hasChannelID(id string) func(Envelope) bool {
	return func(e Envelope) bool {
		var c channel.Channel
		_ = json.Unmarshal(e.Data, &c)
		return c.ID == id
	}
}

func TestCreateChannel(t *testing.T) {
	h := newHarness(t, nil)
	creator := h.connect("")
	observer := h.connect("")

	h.agent(t, creator, "miles@earth1610.test", "Miles")

	ack := h.mustSucceed(t, creator, EventCreateChannel, map[string]string{"name": "Spot Hunters"})
	var created channel.Channel
	_ = json.Unmarshal(ack.Channel, &created)
	if created.ID != "spot-hunters" {
		t.Fatalf("created = %+v", created)
	}

	observer.waitFor(t, EventChannelCreated, nil)

	wantCode(t, h.request(t, creator, EventCreateChannel, "spot hunters"), errs.ErrChannelExists)
	wantCode(t, h.request(t, creator, EventCreateChannel, "!!!"), errs.ErrChannelNameInvalid)
}

func TestSaveCharacterWritesArchiveEntry(t *testing.T) {
	h := newHarness(t, nil)
	p := h.connect("")

	h.agent(t, p, "india@earth50101.test", "Spider-India")

	archive, _ := h.messages.History(context.Background(), channel.LoreArchiveID, 0)
	if len(archive) != 1 {
		t.Fatalf("lore-archive has %d entries, want 1", len(archive))
	}
	if archive[0].AuthorName != archiveBotName || archive[0].Text != "[NEW ENTRY] **Spider-India** (Earth-42)\n\nBitten." {
		t.Fatalf("archive entry = %+v", archive[0])
	}

	members := h.mustSucceed(t, p, EventGetMembers, nil)
	if !members.Success {
		t.Fatal("getMembers failed")
	}
}

func TestAdminAnnounce(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.connect("")
	agent := h.connect("")

	h.agent(t, admin, testAdminEmail, "Miguel")
	h.agent(t, agent, "lyla@earth928.test", "Lyla")

	wantCode(t, h.request(t, agent, EventAdminAnnounce, map[string]string{"text": "hi"}), errs.ErrForbidden)
	h.mustSucceed(t, admin, EventAdminAnnounce, map[string]string{"text": "Canon event in progress"})

	env := agent.waitFor(t, EventAnnouncement, nil)
	var got announcementPayload
	_ = json.Unmarshal(env.Data, &got)
	if got.Text != "Canon event in progress" || got.Timestamp == 0 {
		t.Fatalf("announcement = %+v", got)
	}
}

func TestSignupRequiresProofOfWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := newHarness(t, pow.NewManager(ctx, 1))
	p := h.connect("")

	creds := map[string]string{"email": "spot@earth-x.test", "password": "holes-everywhere"}
	wantCode(t, h.request(t, p, EventSignup, creds), errs.ErrPowChallengeRequired)

	creds["powToken"] = "forged"
	wantCode(t, h.request(t, p, EventSignup, creds), errs.ErrPowChallengeInvalid)
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.users.Signup(context.Background(), "may@earth616.test", "aunt-may"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	wantCode(t, h.request(t, h.connect(""), EventLogin, map[string]string{"email": "may@earth616.test", "password": "wrong"}), errs.ErrInvalidCredentials)

	ack := h.mustSucceed(t, h.connect(""), EventLogin, map[string]string{"email": "MAY@earth616.test", "password": "aunt-may"})
	if ack.UID == "" || ack.HasProfile {
		t.Fatalf("login ack = %+v", ack)
	}
}
