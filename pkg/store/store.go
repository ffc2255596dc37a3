// Package store persists record documents.
//
// A [Store] holds record documents under caller-chosen keys. Every Put
// stores a new revision with a fresh ID and replaces the previous revision
// of the key. Backends:
//
//   - [NullStore]: stores nothing, for tests and dry runs
//   - [FileStore]: one JSON file per key under a directory, for CLI use
//   - [RedisStore]: shared storage for several server instances
//   - [MongoStore]: durable storage with queryable metadata
//
// Keys are validated with [errors.ValidateStoreKey]. Use [NewScoped] to give
// several users or projects separate key spaces over one backend.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
)

// ErrNotFound is returned when a key has no stored document.
var ErrNotFound = stderrors.New("document not found")

// Store persists record documents under keys.
type Store interface {
	// Put stores doc under key and returns the entry of the new revision.
	Put(ctx context.Context, key string, doc *record.Document) (Entry, error)
	// Get returns the document stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*record.Document, Entry, error)
	// List returns the entries of all keys, newest first.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Entry describes one stored revision.
type Entry struct {
	Key     string    `json:"key" bson:"_id"`
	ID      string    `json:"id" bson:"revision"`
	Nodes   int       `json:"nodes" bson:"nodes"`
	Hash    string    `json:"hash" bson:"hash"`
	Size    int       `json:"size" bson:"size"`
	Created time.Time `json:"created" bson:"created"`
}

// envelope is the stored form of a revision in the file and redis
// backends.
type envelope struct {
	Entry    Entry           `json:"entry"`
	Document json.RawMessage `json:"document"`
}

// encode validates and serializes doc for storage under key.
func encode(key string, doc *record.Document) (Entry, []byte, error) {
	if err := errors.ValidateStoreKey(key); err != nil {
		return Entry{}, nil, err
	}
	if doc == nil {
		return Entry{}, nil, errors.New(errors.ErrCodeInvalidInput, "put %s: nil document", key)
	}
	data, err := record.Marshal(doc)
	if err != nil {
		return Entry{}, nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "put %s", key)
	}
	e := Entry{
		Key:     key,
		ID:      uuid.NewString(),
		Nodes:   len(doc.Nodes),
		Hash:    digest(data),
		Size:    len(data),
		Created: time.Now().UTC(),
	}
	return e, data, nil
}

func decode(key string, data []byte) (*record.Document, error) {
	doc, err := record.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode %s", key)
	}
	return doc, nil
}

func notFound(key string) error {
	return fmt.Errorf("get %s: %w", key, ErrNotFound)
}

// IsNotFound reports whether err means a key has no document.
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}
