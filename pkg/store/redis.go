package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/record"
)

// DefaultRedisPrefix prefixes every key the redis store writes.
const DefaultRedisPrefix = "rigstash:"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// URL is a redis:// or rediss:// URL.
	URL string
	// Prefix is prepended to every redis key. Defaults to DefaultRedisPrefix.
	Prefix string
	// TTL expires documents after the given duration. Zero keeps them.
	TTL time.Duration
}

// RedisStore keeps documents in redis: one string key per document and a
// sorted set indexing the keys by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redis and pings it. Connection failures are
// retried with backoff.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "redis store: URL is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse redis URL")
	}
	client := redis.NewClient(opts)

	err = connectBackoff.ping(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to redis")
	}
	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (s *RedisStore) docKey(key string) string { return s.prefix + "doc:" + key }
func (s *RedisStore) indexKey() string         { return s.prefix + "index" }

// Put stores a document and indexes its key.
func (s *RedisStore) Put(ctx context.Context, key string, doc *record.Document) (Entry, error) {
	e, data, err := encode(key, doc)
	if err != nil {
		return Entry{}, err
	}
	raw, err := json.Marshal(envelope{Entry: e, Document: data})
	if err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.docKey(key), raw, s.ttl)
		p.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(e.Created.UnixNano()), Member: key})
		return nil
	})
	if err != nil {
		return Entry{}, errors.Wrap(errors.ErrCodeStore, err, "put %s", key)
	}
	return e, nil
}

// Get retrieves a document.
func (s *RedisStore) Get(ctx context.Context, key string) (*record.Document, Entry, error) {
	if err := errors.ValidateStoreKey(key); err != nil {
		return nil, Entry{}, err
	}
	raw, err := s.client.Get(ctx, s.docKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, Entry{}, notFound(key)
	}
	if err != nil {
		return nil, Entry{}, errors.Wrap(errors.ErrCodeStore, err, "get %s", key)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Entry{}, errors.Wrap(errors.ErrCodeStore, err, "decode %s", key)
	}
	doc, err := decode(key, env.Document)
	if err != nil {
		return nil, Entry{}, err
	}
	return doc, env.Entry, nil
}

// List returns the entries of indexed documents, newest first. Index
// members whose document has expired are dropped from the index.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	keys, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list")
	}
	if len(keys) == 0 {
		return nil, nil
	}
	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = s.docKey(k)
	}
	vals, err := s.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list")
	}

	var (
		out   []Entry
		stale []any
	)
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(str), &env); err != nil {
			continue
		}
		out = append(out, env.Entry)
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return out, nil
}

// Delete removes a document and its index entry.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := errors.ValidateStoreKey(key); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.docKey(key))
		p.ZRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete %s", key)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
