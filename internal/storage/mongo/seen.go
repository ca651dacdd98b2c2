// Package mongo keeps seen-URL markers in a MongoDB collection with a TTL
// index.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	URI        string
	Database   string
	Collection string
}

type seenMarker struct {
	Key       string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// SeenStore implements seen.Store. MongoDB removes expired documents in the
// background, so reads also filter on expires_at.
type SeenStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

func NewSeenStore(ctx context.Context, cfg Config) (*SeenStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &SeenStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		now:        time.Now,
	}

	if err := s.createIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *SeenStore) createIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := s.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}

func (s *SeenStore) Get(ctx context.Context, key string) (bool, error) {
	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": s.now()},
	}

	var marker seenMarker
	err := s.collection.FindOne(ctx, filter).Decode(&marker)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SeenStore) SetWithTTL(ctx context.Context, key string, ttl time.Duration) error {
	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{"expires_at": s.now().Add(ttl)}}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Ping reports whether the server is reachable.
func (s *SeenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *SeenStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
