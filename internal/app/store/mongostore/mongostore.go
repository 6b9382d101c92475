/*
Package mongostore implements the user, channel and message repositories on MongoDB.
Documents use string ids in _id so they line up with the other backends.
*/
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"spiderlink/internal/app/channel"
	"spiderlink/internal/app/message"
	"spiderlink/internal/app/user"
)

const (
	usersCollection    = "users"
	channelsCollection = "channels"
	messagesCollection = "messages"
)

// Connect opens a client, pings the primary and returns the named database.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, client.Database(database), nil
}

// EnsureIndexes creates the uniqueness and history indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "handle", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "has_profile", Value: 1}, {Key: "online", Value: 1}}},
	}
	if _, err := database.Collection(usersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	messages := []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
	}
	if _, err := database.Collection(messagesCollection).Indexes().CreateMany(ctx, messages); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}

	return nil
}

// UserRepo implements user.Repository.
type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(database *mongo.Database) *UserRepo {
	return &UserRepo{coll: database.Collection(usersCollection)}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	_, err := r.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return user.ErrAlreadyExists
	}
	return err
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*user.User, error) {
	var u user.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*user.User, error) {
	return r.findOne(ctx, bson.M{"handle": handle})
}

func (r *UserRepo) update(ctx context.Context, id string, set bson.M) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) error {
	return r.update(ctx, id, bson.M{
		"name":        p.Name,
		"earth":       p.Earth,
		"lore":        p.Lore,
		"avatar":      p.Avatar,
		"has_profile": true,
	})
}

func (r *UserRepo) SetPresence(ctx context.Context, id string, online bool, connID string, seen time.Time) error {
	return r.update(ctx, id, bson.M{
		"online":    online,
		"conn_id":   connID,
		"last_seen": seen,
	})
}

func (r *UserRepo) ListProfiled(ctx context.Context, onlineOnly bool) ([]user.User, error) {
	filter := bson.M{"has_profile": true}
	if onlineOnly {
		filter["online"] = true
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var users []user.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) ResetPresence(ctx context.Context) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"online": true}, bson.M{"conn_id": bson.M{"$nin": bson.A{"", nil}}}}},
		bson.M{"$set": bson.M{"online": false, "conn_id": ""}},
	)
	return err
}

// ChannelRepo implements channel.Repository.
type ChannelRepo struct {
	coll *mongo.Collection
}

func NewChannelRepo(database *mongo.Database) *ChannelRepo {
	return &ChannelRepo{coll: database.Collection(channelsCollection)}
}

func (r *ChannelRepo) Create(ctx context.Context, c *channel.Channel) error {
	_, err := r.coll.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return channel.ErrExists
	}
	return err
}

func (r *ChannelRepo) Get(ctx context.Context, id string) (*channel.Channel, error) {
	var c channel.Channel
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, channel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChannelRepo) List(ctx context.Context) ([]channel.Channel, error) {
	cur, err := r.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var channels []channel.Channel
	if err := cur.All(ctx, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// MessageRepo implements message.Repository.
type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(database *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: database.Collection(messagesCollection)}
}

func (r *MessageRepo) Insert(ctx context.Context, m *message.Message) error {
	_, err := r.coll.InsertOne(ctx, m)
	return err
}

func (r *MessageRepo) Get(ctx context.Context, id string) (*message.Message, error) {
	var m message.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, message.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) Recent(ctx context.Context, channelID string, limit int) ([]message.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{"channel_id": channelID}, opts)
	if err != nil {
		return nil, err
	}

	var messages []message.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return message.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) Count(ctx context.Context, channelID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"channel_id": channelID})
}
