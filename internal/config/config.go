package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the daemon configuration, loaded from huddle.toml with
// HUDDLE_* environment overrides applied on top.
type Config struct {
	ListenAddr    string `toml:"listen_addr"`
	DataDir       string `toml:"data_dir"`
	NATSURL       string `toml:"nats_url"`
	JWTSecret     string `toml:"jwt_secret"`
	UploadDir     string `toml:"upload_dir"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8080",
		DataDir:       "data",
		NATSURL:       "nats://127.0.0.1:4222",
		PublicBaseURL: "http://localhost:8080",
	}
}

// Load reads config from the given path on top of the defaults.
// A missing file is not an error; environment overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.DataDir, "uploads")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfPresent := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setIfPresent("HUDDLE_LISTEN_ADDR", &c.ListenAddr)
	setIfPresent("HUDDLE_DATA_DIR", &c.DataDir)
	setIfPresent("HUDDLE_NATS_URL", &c.NATSURL)
	setIfPresent("HUDDLE_JWT_SECRET", &c.JWTSecret)
	setIfPresent("HUDDLE_UPLOAD_DIR", &c.UploadDir)
	setIfPresent("HUDDLE_PUBLIC_BASE_URL", &c.PublicBaseURL)
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (set it in huddle.toml or HUDDLE_JWT_SECRET)")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	return nil
}

// DBPath returns the SQLite database path under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "huddle.db")
}

// LogDir returns the log directory under the data directory.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// LogPath returns the daemon log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogDir(), "huddled.log")
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
