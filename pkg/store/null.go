package store

import (
	"context"

	"github.com/matzehuels/rigstash/pkg/record"
)

// NullStore is a no-op store that never keeps anything.
// Put still validates and describes the document.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store {
	return &NullStore{}
}

// Put returns the entry the document would have had.
func (s *NullStore) Put(ctx context.Context, key string, doc *record.Document) (Entry, error) {
	e, _, err := encode(key, doc)
	return e, err
}

// Get always returns ErrNotFound.
func (s *NullStore) Get(ctx context.Context, key string) (*record.Document, Entry, error) {
	return nil, Entry{}, notFound(key)
}

// List always returns no entries.
func (s *NullStore) List(ctx context.Context) ([]Entry, error) {
	return nil, nil
}

// Delete does nothing.
func (s *NullStore) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

// Ensure NullStore implements Store.
var _ Store = (*NullStore)(nil)
