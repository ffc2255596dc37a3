package store

import (
	"context"
	"strings"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
)

// ScopedStore wraps a Store with a key prefix for multi-tenant isolation.
// Keys passed to and returned by a scoped store are unprefixed.
//
// Example usage:
//
//	// Per-project key space
//	proj := NewScoped(base, "proj:hero:")
//	proj.Put(ctx, "body_skin", doc) // stored as "proj:hero:body_skin"
type ScopedStore struct {
	inner  Store
	prefix string
}

// NewScoped creates a store whose keys are prefixed with prefix.
// The prefix must itself be a valid key.
func NewScoped(inner Store, prefix string) (*ScopedStore, error) {
	if err := errors.ValidateStoreKey(prefix); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "scope prefix")
	}
	return &ScopedStore{inner: inner, prefix: prefix}, nil
}

// Put stores a document under the prefixed key.
func (s *ScopedStore) Put(ctx context.Context, key string, doc *record.Document) (Entry, error) {
	e, err := s.inner.Put(ctx, s.prefix+key, doc)
	e.Key = key
	return e, err
}

// Get retrieves a document by unprefixed key.
func (s *ScopedStore) Get(ctx context.Context, key string) (*record.Document, Entry, error) {
	doc, e, err := s.inner.Get(ctx, s.prefix+key)
	e.Key = strings.TrimPrefix(e.Key, s.prefix)
	return doc, e, err
}

// List returns the entries under the prefix.
func (s *ScopedStore) List(ctx context.Context) ([]Entry, error) {
	all, err := s.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if k, ok := strings.CutPrefix(e.Key, s.prefix); ok {
			e.Key = k
			out = append(out, e)
		}
	}
	return out, nil
}

// Delete removes a document by unprefixed key.
func (s *ScopedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the wrapped store.
func (s *ScopedStore) Close() error {
	return s.inner.Close()
}

// Ensure ScopedStore implements Store.
var _ Store = (*ScopedStore)(nil)
