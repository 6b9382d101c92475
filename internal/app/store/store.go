/*
Package store selects and opens the persistence backend named by STORE_DRIVER and
exposes its repositories behind the domain interfaces.
*/
package store

import (
	"context"
	"fmt"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/db"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/store/memory"
	"spiderlink/internal/app/store/mongostore"
	"spiderlink/internal/app/store/postgres"
	"spiderlink/internal/app/user"
	"spiderlink/internal/configs"
	"spiderlink/internal/pkg/logx"
)

// Store bundles the repositories of one backend.
type Store struct {
	Driver   string
	Users    user.Repository
	Channels channel.Repository
	Messages message.Repository

	closeFn func(ctx context.Context) error
}

// Close releases the backend's connections.
func (s *Store) Close(ctx context.Context) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}

// NewMemory returns an in-process store.
func NewMemory() *Store {
	return &Store{
		Driver:   configs.StoreDriverMemory,
		Users:    memory.NewUserRepo(),
		Channels: memory.NewChannelRepo(),
		Messages: memory.NewMessageRepo(),
	}
}

// Open connects to the configured backend. Postgres is migrated and Mongo indexed
// before Open returns.
func Open(ctx context.Context, cfg *configs.AppConfig) (*Store, error) {
	switch cfg.StoreDriver {
	case configs.StoreDriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		logx.Info("Connected to PostgreSQL")

		return &Store{
			Driver:   cfg.StoreDriver,
			Users:    postgres.NewUserRepo(pool),
			Channels: postgres.NewChannelRepo(pool),
			Messages: postgres.NewMessageRepo(pool),
			closeFn: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case configs.StoreDriverMongo:
		client, database, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		logx.Info("Connected to MongoDB", "database", cfg.MongoDatabase)

		return &Store{
			Driver:   cfg.StoreDriver,
			Users:    mongostore.NewUserRepo(database),
			Channels: mongostore.NewChannelRepo(database),
			Messages: mongostore.NewMessageRepo(database),
			closeFn:  client.Disconnect,
		}, nil

	case configs.StoreDriverMemory:
		logx.Warn("Using in-memory store, data is lost on restart")
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
