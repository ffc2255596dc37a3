// Package config loads rigstash settings.
//
// Settings come, in increasing precedence, from built-in defaults, a TOML
// or YAML file and the environment. A .env file is loaded into the
// environment first without overriding variables already set.
//
// # Environment
//
//	RIGSTASH_STORE       store backend (null, file, redis, mongo)
//	RIGSTASH_STORE_DIR   file store directory
//	RIGSTASH_SCOPE       store key prefix
//	REDIS_URL            redis store URL
//	MONGO_URI            mongo store URI
//	RIGSTASH_ADDR        HTTP listen address
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/rigstash/pkg/delta"
	"github.com/matzehuels/rigstash/pkg/engine"
	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/store"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// AppName names the data directory.
	AppName = "rigstash"

	// DefaultFile is the config file looked up in the working directory.
	DefaultFile = "rigstash.toml"

	// DefaultAddr is the HTTP listen address.
	DefaultAddr = ":8080"

	// DefaultReadTimeout bounds reading an HTTP request.
	DefaultReadTimeout = 30 * time.Second

	// DefaultMaxBodyBytes bounds uploaded documents.
	DefaultMaxBodyBytes = 32 << 20
)

// Environment variables read by ApplyEnv.
const (
	EnvStore    = "RIGSTASH_STORE"
	EnvStoreDir = "RIGSTASH_STORE_DIR"
	EnvScope    = "RIGSTASH_SCOPE"
	EnvRedisURL = "REDIS_URL"
	EnvMongoURI = "MONGO_URI"
	EnvAddr     = "RIGSTASH_ADDR"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all settings.
type Config struct {
	Engine    EngineConfig    `toml:"engine" yaml:"engine"`
	Merge     MergeConfig     `toml:"merge" yaml:"merge"`
	Decompose DecomposeConfig `toml:"decompose" yaml:"decompose"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
}

// EngineConfig holds load defaults.
type EngineConfig struct {
	Recreate      bool              `toml:"recreate" yaml:"recreate"`
	NameMap       map[string]string `toml:"name_map" yaml:"name_map"`
	NamespaceFrom string            `toml:"namespace_from" yaml:"namespace_from"`
	NamespaceTo   string            `toml:"namespace_to" yaml:"namespace_to"`
}

// MergeConfig holds merge defaults.
type MergeConfig struct {
	Normalize       bool    `toml:"normalize" yaml:"normalize"`
	WeightThreshold float64 `toml:"weight_threshold" yaml:"weight_threshold"`
	// Filter is a regular expression influence names must match to be
	// added by a merge. Empty accepts every influence.
	Filter string `toml:"filter" yaml:"filter"`
}

// DecomposeConfig holds pose-delta decomposition defaults.
type DecomposeConfig struct {
	Threshold float64 `toml:"threshold" yaml:"threshold"`
	Step      float64 `toml:"step" yaml:"step"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Backend         string        `toml:"backend" yaml:"backend"`
	Dir             string        `toml:"dir" yaml:"dir"`
	Scope           string        `toml:"scope" yaml:"scope"`
	RedisURL        string        `toml:"redis_url" yaml:"redis_url"`
	RedisPrefix     string        `toml:"redis_prefix" yaml:"redis_prefix"`
	TTL             time.Duration `toml:"ttl" yaml:"ttl"`
	MongoURI        string        `toml:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase   string        `toml:"mongo_database" yaml:"mongo_database"`
	MongoCollection string        `toml:"mongo_collection" yaml:"mongo_collection"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `toml:"addr" yaml:"addr"`
	Metrics      bool          `toml:"metrics" yaml:"metrics"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	MaxBodyBytes int64         `toml:"max_body_bytes" yaml:"max_body_bytes"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Decompose: DecomposeConfig{Threshold: delta.DefaultThreshold, Step: delta.DefaultStep},
		Store:     StoreConfig{Backend: store.BackendFile},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			Metrics:      true,
			ReadTimeout:  DefaultReadTimeout,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads settings from path, then the environment. An empty path uses
// DefaultFile when it exists and the defaults otherwise. Files ending in
// .yaml or .yml are YAML; everything else is TOML.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(path, data); err != nil {
			return nil, err
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		return nil
	}

	md, err := toml.Decode(string(data), c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "parse %s: unknown key %s", path, undec[0])
	}
	return nil
}

// LoadEnvFile loads variables from a .env file into the environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Store.Backend, EnvStore)
	set(&c.Store.Dir, EnvStoreDir)
	set(&c.Store.Scope, EnvScope)
	set(&c.Store.RedisURL, EnvRedisURL)
	set(&c.Store.MongoURI, EnvMongoURI)
	set(&c.Server.Addr, EnvAddr)
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendNull, store.BackendFile:
	case store.BackendRedis:
		if c.Store.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis store needs %s or store.redis_url", EnvRedisURL)
		}
	case store.BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "mongo store needs %s or store.mongo_uri", EnvMongoURI)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Dir != "" {
		if err := errors.ValidatePath(c.Store.Dir); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "store.dir")
		}
	}
	if t := c.Merge.WeightThreshold; t < 0 || t >= 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "merge.weight_threshold %v outside [0, 1)", t)
	}
	if _, err := regexp.Compile(c.Merge.Filter); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "merge.filter")
	}
	if c.Decompose.Threshold < 0 || c.Decompose.Step < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "decompose threshold and step must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must not be negative")
	}
	return nil
}

// =============================================================================
// Conversions
// =============================================================================

// LoadOptions returns the engine load options.
func (c *Config) LoadOptions() engine.LoadOptions {
	opts := engine.LoadOptions{Recreate: c.Engine.Recreate, NameMap: c.Engine.NameMap}
	if c.Engine.NamespaceFrom != "" || c.Engine.NamespaceTo != "" {
		opts.NamespaceMap = &engine.NamespaceMap{From: c.Engine.NamespaceFrom, To: c.Engine.NamespaceTo}
	}
	return opts
}

// MergeOptions returns the engine merge options.
func (c *Config) MergeOptions() (engine.MergeOptions, error) {
	lo := c.LoadOptions()
	opts := engine.MergeOptions{
		Normalize:       c.Merge.Normalize,
		WeightThreshold: c.Merge.WeightThreshold,
		NameMap:         lo.NameMap,
		NamespaceMap:    lo.NamespaceMap,
	}
	if c.Merge.Filter != "" {
		re, err := regexp.Compile(c.Merge.Filter)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidConfig, err, "merge.filter")
		}
		opts.Filter = re.MatchString
	}
	return opts, nil
}

// DecomposeOptions returns the decomposition options.
func (c *Config) DecomposeOptions() delta.Options {
	return delta.Options{Threshold: c.Decompose.Threshold, Step: c.Decompose.Step}
}

// StoreOptions returns the store configuration. The file store defaults
// to a directory under DataDir.
func (c *Config) StoreOptions() (store.Config, error) {
	dir := c.Store.Dir
	if dir == "" && (c.Store.Backend == store.BackendFile || c.Store.Backend == "") {
		d, err := DataDir()
		if err != nil {
			return store.Config{}, fmt.Errorf("data dir: %w", err)
		}
		dir = filepath.Join(d, "documents")
	}
	return store.Config{
		Backend: c.Store.Backend,
		Dir:     dir,
		Scope:   c.Store.Scope,
		Redis:   store.RedisConfig{URL: c.Store.RedisURL, Prefix: c.Store.RedisPrefix, TTL: c.Store.TTL},
		Mongo: store.MongoConfig{
			URI:        c.Store.MongoURI,
			Database:   c.Store.MongoDatabase,
			Collection: c.Store.MongoCollection,
		},
	}, nil
}

// DataDir returns the data directory using the XDG standard
// (~/.local/share/rigstash/).
func DataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}
