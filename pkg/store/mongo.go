package store

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
)

// Default Values
const (
	DefaultMongoDatabase   = "rigstash"
	DefaultMongoCollection = "documents"
)

// MongoConfig configures a MongoStore.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore keeps one mongo document per key. The record document is
// stored as its JSON text next to the entry fields.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	Entry `bson:",inline"`
	Data  string `bson:"data"`
}

// NewMongoStore connects to mongo and pings the primary. Connection
// failures are retried with backoff.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo store: URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "mongo client")
	}
	err = connectBackoff.ping(ctx, func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongo")
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "created", Value: -1}}})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create mongo index")
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Put upserts the document of key.
func (s *MongoStore) Put(ctx context.Context, key string, doc *record.Document) (Entry, error) {
	e, data, err := encode(key, doc)
	if err != nil {
		return Entry{}, err
	}
	_, err = s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDoc{Entry: e, Data: string(data)},
		options.Replace().SetUpsert(true))
	if err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}
	return e, nil
}

// Get retrieves a document.
func (s *MongoStore) Get(ctx context.Context, key string) (*record.Document, Entry, error) {
	if err := errors.ValidateStoreKey(key); err != nil {
		return nil, Entry{}, err
	}
	var md mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&md)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, Entry{}, notFound(key)
	}
	if err != nil {
		return nil, Entry{}, errors.Wrap(errors.ErrCodeStore, err, "get %s", key)
	}
	doc, err := decode(key, []byte(md.Data))
	if err != nil {
		return nil, Entry{}, err
	}
	return doc, md.Entry, nil
}

// List returns all entries, newest first, without loading documents.
func (s *MongoStore) List(ctx context.Context) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"data": 0})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list")
	}
	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list")
	}
	return out, nil
}

// Delete removes a document.
func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if err := errors.ValidateStoreKey(key); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete %s", key)
	}
	return nil
}

// Close disconnects the mongo client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
