package store

import (
	"context"
	"time"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/observability"
	"github.com/matzehuels/rigstash/pkg/record"
)

// Backend names.
const (
	BackendNull  = "null"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string
	Redis   RedisConfig
	Mongo   MongoConfig
	// Scope, when set, prefixes every key; see NewScoped.
	Scope string
}

// Open creates the configured store. Calls on the returned store report
// to the global store hooks.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendNull:
		s = NewNullStore()
	case BackendFile, "":
		if cfg.Dir == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "file store: directory is required")
		}
		s, err = NewFileStore(cfg.Dir)
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	case BackendMongo:
		s, err = NewMongoStore(ctx, cfg.Mongo)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Scope != "" {
		scoped, err := NewScoped(s, cfg.Scope)
		if err != nil {
			s.Close()
			return nil, err
		}
		s = scoped
	}
	name := cfg.Backend
	if name == "" {
		name = BackendFile
	}
	return Instrument(s, name), nil
}

// Instrument wraps s so that its calls report to the global store hooks
// under the given backend name.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

type instrumented struct {
	Store
	backend string
}

func (s *instrumented) Put(ctx context.Context, key string, doc *record.Document) (Entry, error) {
	e, err := s.Store.Put(ctx, key, doc)
	if err == nil {
		observability.Store().OnPut(ctx, s.backend, e.Size)
	}
	return e, err
}

func (s *instrumented) Get(ctx context.Context, key string) (*record.Document, Entry, error) {
	doc, e, err := s.Store.Get(ctx, key)
	if err == nil || IsNotFound(err) {
		observability.Store().OnGet(ctx, s.backend, err == nil)
	}
	return doc, e, err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	err := s.Store.Delete(ctx, key)
	if err == nil {
		observability.Store().OnDelete(ctx, s.backend)
	}
	return err
}

// Unwrap returns the wrapped store.
func (s *instrumented) Unwrap() Store { return s.Store }

// Underlying strips instrumentation and scoping wrappers from s.
func Underlying(s Store) Store {
	for {
		switch w := s.(type) {
		case *instrumented:
			s = w.Store
		case *ScopedStore:
			s = w.inner
		default:
			return s
		}
	}
}

// OpTimeout bounds single store calls made by the CLI and the server.
const OpTimeout = 10 * time.Second
