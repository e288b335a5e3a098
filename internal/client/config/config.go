package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the platerecon CLI.
//
// Fields:
//   - ServerURL: base URL of the REST gateway.
//   - TokenFile: where the access token from "login" is kept.
//   - Timeout: per-request HTTP timeout (reconstruction included).
type Config struct {
	ServerURL string
	TokenFile string
	Timeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.TokenFile = defaultTokenFile()
	c.Timeout = 60 * time.Second
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".platerecon-token"
	}
	return filepath.Join(dir, "platerecon", "token")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if -c/--config names a file), then PLATERECON_SERVER, then flags.
// It returns the positional arguments left after flag parsing.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, nil, err
	}
	if v, ok := os.LookupEnv("PLATERECON_SERVER"); ok && v != "" {
		cfg.ServerURL = v
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
