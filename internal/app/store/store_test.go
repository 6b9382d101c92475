package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/user"
	"spiderlink/internal/configs"
	"spiderlink/internal/pkg/randx"
)

// Backends other than memory run only when a test server is provided:
//
//	TEST_DATABASE_URL=postgres://... TEST_MONGODB_URI=mongodb://... go test ./internal/app/store/
func backends(t *testing.T) map[string]*Store {
	t.Helper()
	ctx := context.Background()
	out := map[string]*Store{"memory": NewMemory()}

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		s, err := Open(ctx, &configs.AppConfig{StoreDriver: configs.StoreDriverPostgres, DatabaseDSN: dsn})
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(func() { _ = s.Close(ctx) })
		out["postgres"] = s
	}

	if uri := os.Getenv("TEST_MONGODB_URI"); uri != "" {
		s, err := Open(ctx, &configs.AppConfig{
			StoreDriver:   configs.StoreDriverMongo,
			MongoURI:      uri,
			MongoDatabase: "spiderlink_test",
		})
		if err != nil {
			t.Fatalf("open mongo: %v", err)
		}
		t.Cleanup(func() { _ = s.Close(ctx) })
		out["mongo"] = s
	}

	return out
}

func TestUserRepository(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Millisecond)
			handle := randx.ID() + "@earth42.test"

			u := &user.User{ID: randx.ID(), Handle: handle, Email: handle, PasswordHash: "x", CreatedAt: now, LastSeen: now}
			if err := s.Users.Create(ctx, u); err != nil {
				t.Fatalf("Create: %v", err)
			}

			dup := &user.User{ID: randx.ID(), Handle: handle, Email: handle, CreatedAt: now, LastSeen: now}
			if err := s.Users.Create(ctx, dup); !errors.Is(err, user.ErrAlreadyExists) {
				t.Fatalf("duplicate handle err = %v, want ErrAlreadyExists", err)
			}

			got, err := s.Users.GetByHandle(ctx, handle)
			if err != nil || got.ID != u.ID {
				t.Fatalf("GetByHandle = %+v, %v", got, err)
			}

			if _, err := s.Users.GetByID(ctx, randx.ID()); !errors.Is(err, user.ErrNotFound) {
				t.Fatalf("missing user err = %v", err)
			}

			if err := s.Users.UpdateProfile(ctx, u.ID, user.Profile{Name: "Miles", Earth: "Earth-42"}); err != nil {
				t.Fatalf("UpdateProfile: %v", err)
			}
			if err := s.Users.SetPresence(ctx, u.ID, true, "conn_1", now); err != nil {
				t.Fatalf("SetPresence: %v", err)
			}

			online, err := s.Users.ListProfiled(ctx, true)
			if err != nil {
				t.Fatalf("ListProfiled: %v", err)
			}
			if !containsUser(online, u.ID) {
				t.Fatal("online user missing from online list")
			}

			if err := s.Users.ResetPresence(ctx); err != nil {
				t.Fatalf("ResetPresence: %v", err)
			}
			got, _ = s.Users.GetByID(ctx, u.ID)
			if got.Online || got.ConnID != "" || !got.HasProfile || got.Name != "Miles" {
				t.Fatalf("after reset: %+v", got)
			}
		})
	}
}

func containsUser(users []user.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func TestChannelRepository(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := "test-" + randx.ID()

			c := &channel.Channel{ID: id, Name: id, Type: channel.TypePrivate, Members: []string{"a", "b"}, CreatedAt: time.Now().UTC()}
			if err := s.Channels.Create(ctx, c); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := s.Channels.Create(ctx, c); !errors.Is(err, channel.ErrExists) {
				t.Fatalf("duplicate err = %v, want ErrExists", err)
			}

			got, err := s.Channels.Get(ctx, id)
			if err != nil || len(got.Members) != 2 || got.Type != channel.TypePrivate {
				t.Fatalf("Get = %+v, %v", got, err)
			}

			if _, err := s.Channels.Get(ctx, "missing-"+randx.ID()); !errors.Is(err, channel.ErrNotFound) {
				t.Fatalf("missing channel err = %v", err)
			}
		})
	}
}

func TestMessageRepository(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ch := "test-" + randx.ID()
			base := time.Now().UTC().Truncate(time.Millisecond)

			var ids []string
			for i := 0; i < 5; i++ {
				m := &message.Message{
					ID:        randx.ID(),
					ChannelID: ch,
					AuthorID:  "u",
					Text:      "m",
					Type:      message.TypeText,
					CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
				}
				if i == 4 {
					m.ReplyTo = &message.Reply{ID: ids[3], Text: "m", Author: "Gwen"}
				}
				if err := s.Messages.Insert(ctx, m); err != nil {
					t.Fatalf("Insert: %v", err)
				}
				ids = append(ids, m.ID)
			}

			recent, err := s.Messages.Recent(ctx, ch, 3)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(recent) != 3 || recent[0].ID != ids[2] || recent[2].ID != ids[4] {
				t.Fatalf("Recent returned wrong window: %+v", recent)
			}
			if recent[2].ReplyTo == nil || recent[2].ReplyTo.Author != "Gwen" {
				t.Fatalf("reply snapshot lost: %+v", recent[2].ReplyTo)
			}

			if n, err := s.Messages.Count(ctx, ch); err != nil || n != 5 {
				t.Fatalf("Count = %d, %v", n, err)
			}

			if err := s.Messages.Delete(ctx, ids[0]); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Messages.Delete(ctx, ids[0]); !errors.Is(err, message.ErrNotFound) {
				t.Fatalf("second Delete err = %v, want ErrNotFound", err)
			}
			if _, err := s.Messages.Get(ctx, ids[0]); !errors.Is(err, message.ErrNotFound) {
				t.Fatalf("Get after delete err = %v", err)
			}
		})
	}
}
