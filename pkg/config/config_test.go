package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/rigstash/pkg/errors"
	"github.com/matzehuels/rigstash/pkg/store"
)

// clearEnv unsets the variables Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvStore, EnvStoreDir, EnvScope, EnvRedisURL, EnvMongoURI, EnvAddr} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFormats(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "TOML",
			file: "rigstash.toml",
			content: `
[engine]
recreate = true
name_map = { "L_" = "R_" }
namespace_from = "old"
namespace_to = "new"

[merge]
normalize = true
weight_threshold = 0.05
filter = "^R_"

[store]
backend = "null"
ttl = "1h"

[server]
addr = ":9090"
`,
		},
		{
			name: "YAML",
			file: "rigstash.yaml",
			content: `
engine:
  recreate: true
  name_map:
    L_: R_
  namespace_from: old
  namespace_to: new
merge:
  normalize: true
  weight_threshold: 0.05
  filter: "^R_"
store:
  backend: "null"
  ttl: 1h
server:
  addr: ":9090"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !cfg.Engine.Recreate || cfg.Engine.NameMap["L_"] != "R_" {
				t.Errorf("engine = %+v", cfg.Engine)
			}
			if cfg.Store.Backend != store.BackendNull || cfg.Store.TTL != time.Hour {
				t.Errorf("store = %+v", cfg.Store)
			}
			if cfg.Server.Addr != ":9090" || cfg.Server.ReadTimeout != DefaultReadTimeout {
				t.Errorf("server = %+v", cfg.Server)
			}

			lo := cfg.LoadOptions()
			if lo.NamespaceMap == nil || lo.NamespaceMap.To != "new" {
				t.Errorf("load options = %+v", lo)
			}
			mo, err := cfg.MergeOptions()
			if err != nil {
				t.Fatalf("MergeOptions: %v", err)
			}
			if !mo.Normalize || mo.WeightThreshold != 0.05 || mo.Filter("L_arm") || !mo.Filter("R_arm") {
				t.Errorf("merge options = %+v", mo)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != store.BackendFile || cfg.Server.Addr != DefaultAddr {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Decompose.Step != 1.0 {
		t.Errorf("decompose step = %v", cfg.Decompose.Step)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"UnknownKey", "a.toml", "[store]\nbakend = \"file\"\n"},
		{"UnknownYAMLKey", "a.yml", "store:\n  bakend: file\n"},
		{"BadTOML", "a.toml", "[store\n"},
		{"UnknownBackend", "a.toml", "[store]\nbackend = \"s3\"\n"},
		{"RedisWithoutURL", "a.toml", "[store]\nbackend = \"redis\"\n"},
		{"Threshold", "a.toml", "[merge]\nweight_threshold = 2.0\n"},
		{"Filter", "a.toml", "[merge]\nfilter = \"(\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit file: err = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	// .env only fills variables that are unset, not empty.
	os.Unsetenv(EnvMongoURI)
	t.Chdir(t.TempDir())
	if err := os.WriteFile(".env", []byte("MONGO_URI=mongodb://localhost:27017\nRIGSTASH_ADDR=:7000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// Variables already set win over .env.
	t.Setenv(EnvAddr, ":6000")
	t.Setenv(EnvStore, store.BackendMongo)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != store.BackendMongo || cfg.Store.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Server.Addr != ":6000" {
		t.Errorf("addr = %q, want the process environment to win", cfg.Server.Addr)
	}
}

func TestStoreOptions(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	cfg := Default()
	opts, err := cfg.StoreOptions()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", AppName, "documents"); opts.Dir != want {
		t.Errorf("dir = %q, want %q", opts.Dir, want)
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".local", "share", AppName); dir != want {
		t.Errorf("DataDir() = %q, want %q", dir, want)
	}
}
