package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOptions configures a MongoStore.
type MongoOptions struct {
	URI        string
	Database   string // defaults to "tilestyle"
	Collection string // defaults to "resources"
}

// mongoDocument is the stored form of an Entry. The URL is the primary key.
type mongoDocument struct {
	Key    string `bson:"_id"`
	Entry  `bson:",inline"`
	Stored time.Time `bson:"stored"`
}

// MongoStore keeps entries in a MongoDB collection, one document per URL.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := NewMongoStoreFromClient(client, opts.Database, opts.Collection)
	s.owned = true
	return s, nil
}

// NewMongoStoreFromClient wraps an existing client. The caller keeps
// ownership of the client.
func NewMongoStoreFromClient(client *mongo.Client, database, collection string) *MongoStore {
	if database == "" {
		database = "tilestyle"
	}
	if collection == "" {
		collection = "resources"
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

// Get retrieves an entry.
func (s *MongoStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	var doc mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	entry := doc.Entry
	return &entry, true, nil
}

// Put upserts an entry.
func (s *MongoStore) Put(ctx context.Context, key string, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	doc := mongoDocument{Key: key, Entry: *entry, Stored: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// Delete removes an entry.
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close disconnects the client if the store created it.
func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
