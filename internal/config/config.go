package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server struct {
		Host string `json:"host" toml:"host"`
		Port int    `json:"port" toml:"port"`
	} `json:"server" toml:"server"`

	Storage Storage `json:"storage" toml:"storage"`

	Author struct {
		Name  string `json:"name" toml:"name"`
		Email string `json:"email" toml:"email"`
	} `json:"author" toml:"author"`

	Branch      string `json:"branch" toml:"branch"`
	Environment string `json:"environment" toml:"environment"` // development, production
	LogLevel    string `json:"log_level" toml:"log_level"`     // debug, info, warn, error
}

type Storage struct {
	Backend   string `json:"backend" toml:"backend"` // memory, disk, badger
	Path      string `json:"path" toml:"path"`
	Worktree  string `json:"worktree" toml:"worktree"`
	Compress  bool   `json:"compress" toml:"compress"`
	CacheSize int    `json:"cache_size" toml:"cache_size"`
}

const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendBadger = "badger"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Branch:      "master",
		Environment: "development",
		LogLevel:    "info",
	}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.Storage = Storage{
		Backend:   BackendDisk,
		Path:      ".clumsy",
		Worktree:  ".",
		CacheSize: 256,
	}
	cfg.Author.Name = "clumsy"
	cfg.Author.Email = "clumsy@localhost"
	return cfg
}

// Path returns the config file for the environment named by CLUMSY_ENV.
func Path() string {
	env := os.Getenv("CLUMSY_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads a JSON or TOML file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendDisk, BackendBadger:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != BackendMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required for the %s backend", c.Storage.Backend)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
