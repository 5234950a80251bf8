// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"port and url", func(c *Config) { c.Port, c.URL = "/dev/ttyACM0", "ws://blot/ws" }, "mutually exclusive"},
		{"zero baud", func(c *Config) { c.Baud = 0 }, "baud"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"in flight zero", func(c *Config) { c.MaxInFlight = 0 }, "max-in-flight"},
		{"in flight too large", func(c *Config) { c.MaxInFlight = 256 }, "max-in-flight"},
		{"coordinate limit", func(c *Config) { c.CoordLimit = -1 }, "coordinate limit"},
		{"step zero", func(c *Config) { c.Step = 0 }, "step"},
		{"step at edge", func(c *Config) { c.Step = 125 }, "step"},
		{"origin outside", func(c *Config) { c.OriginX = 130 }, "origin"},
		{"origin in area", func(c *Config) { c.OriginX, c.OriginY = 62.5, 62.5 }, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SessionConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 750 * time.Millisecond
	cfg.MaxInFlight = 4
	cfg.CoordLimit = 200

	sc := cfg.SessionConfig(newNopLogger())
	if sc.Timeout != cfg.Timeout || sc.MaxInFlight != 4 || sc.Limits.MaxAbs != 200 {
		t.Errorf("SessionConfig() = %+v", sc)
	}
	if err := sc.Validate(); err != nil {
		t.Errorf("SessionConfig() should be valid: %v", err)
	}
}

func TestApplyFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
port = "/dev/ttyACM0"
baud = 115200
timeout = "5s"
max_in_flight = 2
origin_x = 0.0
origin_y = 10.5
step = 2.5
no_ssl_verify = true
log_level = "debug"
trace = "/tmp/blot.trace"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error: %v", err)
	}

	tests := []struct {
		name     string
		changed  map[string]bool
		initial  func(*Config)
		expected func(*testing.T, Config)
	}{
		{
			name:    "file fills defaults",
			changed: map[string]bool{},
			expected: func(t *testing.T, c Config) {
				if c.Port != "/dev/ttyACM0" || c.Baud != 115200 {
					t.Errorf("link = %s @ %d", c.Port, c.Baud)
				}
				if c.Timeout != 5*time.Second || c.MaxInFlight != 2 {
					t.Errorf("session = %v / %d", c.Timeout, c.MaxInFlight)
				}
				if c.OriginX != 0 || c.OriginY != 10.5 || c.Step != 2.5 {
					t.Errorf("interactive = (%v, %v) step %v", c.OriginX, c.OriginY, c.Step)
				}
				if !c.NoSSLVerify || c.LogLevel != "debug" || c.Trace != "/tmp/blot.trace" {
					t.Errorf("misc = %v %q %q", c.NoSSLVerify, c.LogLevel, c.Trace)
				}
			},
		},
		{
			name:    "flags win",
			changed: map[string]bool{"port": true, "baud": true, "origin-y": true},
			initial: func(c *Config) {
				c.Port = "/dev/ttyUSB3"
				c.Baud = 9600
				c.OriginY = 40
			},
			expected: func(t *testing.T, c Config) {
				if c.Port != "/dev/ttyUSB3" || c.Baud != 9600 || c.OriginY != 40 {
					t.Errorf("changed flags overwritten: %s @ %d, origin y %v", c.Port, c.Baud, c.OriginY)
				}
				if c.Timeout != 5*time.Second {
					t.Errorf("unchanged timeout = %v, want 5s", c.Timeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.initial != nil {
				tt.initial(&cfg)
			}
			if err := ApplyFileConfig(&cfg, fc, tt.changed); err != nil {
				t.Fatalf("ApplyFileConfig() error: %v", err)
			}
			tt.expected(t, cfg)
		})
	}
}

func TestApplyFileConfig_BadDuration(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyFileConfig(&cfg, FileConfig{Timeout: "soon"}, map[string]bool{})
	if err == nil {
		t.Error("expected error for invalid timeout")
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("port = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected parse error")
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
}

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		expected func(*testing.T, Config)
		wantErr  bool
	}{
		{
			name: "all values",
			envVars: map[string]string{
				"BLOTCTL_URL":           "wss://blot.local/ws",
				"BLOTCTL_USERNAME":      "blot",
				"BLOTCTL_BAUD":          "57600",
				"BLOTCTL_TIMEOUT":       "1500ms",
				"BLOTCTL_MAX_IN_FLIGHT": "3",
				"BLOTCTL_ORIGIN_X":      "0",
				"BLOTCTL_ORIGIN_Y":      "12",
				"BLOTCTL_STEP":          "1",
				"BLOTCTL_NO_SSL_VERIFY": "1",
				"BLOTCTL_LOG_LEVEL":     "info",
			},
			changed: map[string]bool{},
			expected: func(t *testing.T, c Config) {
				if c.URL != "wss://blot.local/ws" || c.Username != "blot" || c.Baud != 57600 {
					t.Errorf("link = %q %q %d", c.URL, c.Username, c.Baud)
				}
				if c.Timeout != 1500*time.Millisecond || c.MaxInFlight != 3 {
					t.Errorf("session = %v / %d", c.Timeout, c.MaxInFlight)
				}
				if c.OriginY != 12 || c.Step != 1 || !c.NoSSLVerify || c.LogLevel != "info" {
					t.Errorf("misc = %v %v %v %q", c.OriginY, c.Step, c.NoSSLVerify, c.LogLevel)
				}
			},
		},
		{
			name:    "flag takes precedence",
			envVars: map[string]string{"BLOTCTL_PORT": "/dev/ttyACM9"},
			changed: map[string]bool{"port": true},
			expected: func(t *testing.T, c Config) {
				if c.Port != "" {
					t.Errorf("Port = %q, env should not override a changed flag", c.Port)
				}
			},
		},
		{
			name:    "invalid int",
			envVars: map[string]string{"BLOTCTL_BAUD": "fast"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid float",
			envVars: map[string]string{"BLOTCTL_STEP": "big"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"BLOTCTL_TIMEOUT": "3"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			err := ApplyEnvConfig(&cfg, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() error: %v", err)
			}
			tt.expected(t, cfg)
		})
	}
}

func TestLinkPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		file     FileConfig
		envVars  map[string]string
		changed  map[string]bool
		initial  func(*Config)
		wantPort string
		wantURL  string
	}{
		{
			name:    "url flag over saved port",
			file:    FileConfig{Port: "/dev/ttyACM0"},
			changed: map[string]bool{"url": true},
			initial: func(c *Config) { c.URL = "ws://blot.local/ws" },
			wantURL: "ws://blot.local/ws",
		},
		{
			name:     "port flag over saved url",
			file:     FileConfig{URL: "ws://blot.local/ws"},
			changed:  map[string]bool{"port": true},
			initial:  func(c *Config) { c.Port = "/dev/ttyUSB1" },
			wantPort: "/dev/ttyUSB1",
		},
		{
			name:    "env url over saved port",
			file:    FileConfig{Port: "/dev/ttyACM0"},
			envVars: map[string]string{"BLOTCTL_URL": "wss://bridge/ws"},
			changed: map[string]bool{},
			wantURL: "wss://bridge/ws",
		},
		{
			name:     "env port ignored under url flag",
			envVars:  map[string]string{"BLOTCTL_PORT": "/dev/ttyACM7"},
			changed:  map[string]bool{"url": true},
			initial:  func(c *Config) { c.URL = "ws://blot.local/ws" },
			wantURL:  "ws://blot.local/ws",
			wantPort: "",
		},
		{
			name:     "saved port without overrides",
			file:     FileConfig{Port: "/dev/ttyACM0"},
			changed:  map[string]bool{},
			wantPort: "/dev/ttyACM0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BLOTCTL_PORT", "")
			t.Setenv("BLOTCTL_URL", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			if tt.initial != nil {
				tt.initial(&cfg)
			}
			if err := ApplyFileConfig(&cfg, tt.file, tt.changed); err != nil {
				t.Fatalf("ApplyFileConfig() error: %v", err)
			}
			if err := ApplyEnvConfig(&cfg, tt.changed); err != nil {
				t.Fatalf("ApplyEnvConfig() error: %v", err)
			}

			if cfg.Port != tt.wantPort || cfg.URL != tt.wantURL {
				t.Errorf("link = port %q url %q, want port %q url %q", cfg.Port, cfg.URL, tt.wantPort, tt.wantURL)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}
