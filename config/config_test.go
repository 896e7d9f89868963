package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8546" {
		t.Fatalf("listen address = %q, want :8546", cfg.ListenAddress)
	}
	if cfg.DataDir != "./bridgeledger-data" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.NetworkName != "bridge-local" {
		t.Fatalf("network name = %q", cfg.NetworkName)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file should be written: %v", err)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ListenAddress = ":9000"
DataDir = "/var/lib/bridgeledger"
NetworkName = "bridge-main"
ReapInterval = "30m"
LogFile = "/var/log/bridgeledger.log"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" || cfg.DataDir != "/var/lib/bridgeledger" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	interval, err := cfg.ReapIntervalDuration()
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	if interval != 30*time.Minute {
		t.Fatalf("interval = %s, want 30m", interval)
	}
}

func TestLoadFillsBlankFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ListenAddress = ""
DataDir = ""
NetworkName = ""
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8546" || cfg.DataDir != "./bridgeledger-data" || cfg.NetworkName != "bridge-local" {
		t.Fatalf("blank fields should default, got %+v", cfg)
	}
	interval, err := cfg.ReapIntervalDuration()
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	if interval != 0 {
		t.Fatalf("unset interval should report zero, got %s", interval)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ListenAddress = ":9000"
Bogus = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("unknown key should fail the load")
	}
}

func TestReapIntervalValidation(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"10m", true},
		{"1h30m", true},
		{"", true},
		{"-5m", false},
		{"0s", false},
		{"soon", false},
	}
	for _, tc := range cases {
		cfg := &Config{ReapInterval: tc.value}
		_, err := cfg.ReapIntervalDuration()
		if tc.ok && err != nil {
			t.Fatalf("interval %q: unexpected error %v", tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("interval %q: expected error", tc.value)
		}
	}
}
