package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/platerecon/internal/flagx"
	"github.com/dmitrijs2005/platerecon/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Timeout may be
// a string like "30s" or integer nanoseconds.
type JSONConfig struct {
	ServerURL string         `json:"server_url"`
	TokenFile string         `json:"token_file"`
	Timeout   timex.Duration `json:"timeout"`
}

// parseJSON overlays cfg with the non-empty values from the file named by
// -c/--config. No flag means no change.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.TokenFile != "" {
		cfg.TokenFile = jc.TokenFile
	}
	if jc.Timeout.Duration > 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
