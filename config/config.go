package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the bridgeledgerd runtime settings.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`
	ReapInterval  string `toml:"ReapInterval"`
	LogFile       string `toml:"LogFile"`
}

const defaultConfig = `ListenAddress = ":8546"
DataDir = "./bridgeledger-data"
NetworkName = "bridge-local"
ReapInterval = "10m"
LogFile = ""
`

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8546"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./bridgeledger-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "bridge-local"
	}
	if _, err := cfg.ReapIntervalDuration(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReapIntervalDuration parses the sweep interval, falling back to the reaper's
// default when unset.
func (c *Config) ReapIntervalDuration() (time.Duration, error) {
	trimmed := strings.TrimSpace(c.ReapInterval)
	if trimmed == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid ReapInterval %q: %w", c.ReapInterval, err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("ReapInterval must be positive, got %q", c.ReapInterval)
	}
	return interval, nil
}

func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if _, err := toml.Decode(defaultConfig, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
