package store

import (
	"cmp"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
)

// FileStore implements a file-based store for CLI usage.
// Each key is one JSON file holding the document and its entry.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store in the given directory.
// The directory will be created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create store directory")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Put stores a document, replacing the previous revision of key.
func (s *FileStore) Put(ctx context.Context, key string, doc *record.Document) (Entry, error) {
	e, data, err := encode(key, doc)
	if err != nil {
		return Entry{}, err
	}
	raw, err := json.Marshal(envelope{Entry: e, Document: data})
	if err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}
	return e, nil
}

// Get retrieves a document.
func (s *FileStore) Get(ctx context.Context, key string) (*record.Document, Entry, error) {
	if err := errors.ValidateStoreKey(key); err != nil {
		return nil, Entry{}, err
	}
	env, err := readEnvelope(s.path(key))
	if os.IsNotExist(err) {
		return nil, Entry{}, notFound(key)
	}
	if err != nil {
		return nil, Entry{}, errors.Wrap(errors.ErrCodeStore, err, "get %s", key)
	}
	doc, err := decode(key, env.Document)
	if err != nil {
		return nil, Entry{}, err
	}
	return doc, env.Entry, nil
}

// List returns the entries of all stored documents, newest first.
// Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		env, err := readEnvelope(path)
		if err != nil {
			return nil
		}
		out = append(out, env.Entry)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list %s", s.dir)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out, nil
}

// Delete removes a document.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := errors.ValidateStoreKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete %s", key)
	}
	return nil
}

// Clear removes every stored document.
func (s *FileStore) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "clear %s", s.dir)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return errors.Wrap(errors.ErrCodeStore, err, "clear %s", s.dir)
		}
	}
	return nil
}

// Close does nothing for file store.
func (s *FileStore) Close() error {
	return nil
}

// path converts a key to a file path.
// Uses a hash-based directory structure to avoid too many files in one dir.
func (s *FileStore) path(key string) string {
	hash := digest([]byte(key))
	return filepath.Join(s.dir, hash[:2], hash[2:]+".json")
}

func readEnvelope(path string) (envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
