// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/session"
	"github.com/Thermoquad/blotctl/pkg/transport"
)

// Config holds the resolved CLI configuration.
// Precedence is flags, then BLOTCTL_* environment, then the config file.
type Config struct {
	// Link
	Port        string
	Baud        int
	URL         string
	Username    string
	NoSSLVerify bool

	// Session
	Timeout     time.Duration
	MaxInFlight int
	CoordLimit  float64

	// Interactive
	OriginX float64
	OriginY float64
	Step    float64

	// Diagnostics
	LogLevel string
	LogFile  string
	Trace    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Baud:        transport.DefaultBaudRate,
		Timeout:     session.DefaultTimeout,
		MaxInFlight: 1,
		CoordLimit:  blot.DefaultCoordinateLimit,
		Step:        5,
		LogLevel:    "warn",
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Port != "" && c.URL != "" {
		return fmt.Errorf("--port and --url are mutually exclusive")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxInFlight < 1 || c.MaxInFlight > 255 {
		return fmt.Errorf("max-in-flight must be between 1 and 255")
	}
	if c.CoordLimit <= 0 {
		return fmt.Errorf("coordinate limit must be positive")
	}
	if err := validateStep(c.Step); err != nil {
		return err
	}

	area := blot.DefaultArea()
	if x, y := area.Clamp(c.OriginX, c.OriginY); x != c.OriginX || y != c.OriginY {
		return fmt.Errorf("origin (%g, %g) is outside the work area", c.OriginX, c.OriginY)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

func validateStep(step float64) error {
	if step <= 0 || step >= blot.DefaultArea().MaxX {
		return fmt.Errorf("step must be between 0 and %g mm (exclusive), got %g", blot.DefaultArea().MaxX, step)
	}
	return nil
}

// SessionConfig builds the session settings from the CLI configuration
func (c *Config) SessionConfig(log zerolog.Logger) session.Config {
	sc := session.DefaultConfig()
	sc.Timeout = c.Timeout
	sc.MaxInFlight = c.MaxInFlight
	sc.Limits = blot.Limits{MaxAbs: c.CoordLimit}
	sc.Logger = log
	return sc
}

//////////////////////////////////////////////////////////////
// Config file
//////////////////////////////////////////////////////////////

// FileConfig mirrors Config with TOML friendly types
type FileConfig struct {
	Port            string   `toml:"port"`
	Baud            int      `toml:"baud"`
	URL             string   `toml:"url"`
	Username        string   `toml:"username"`
	NoSSLVerify     *bool    `toml:"no_ssl_verify"`
	Timeout         string   `toml:"timeout"`
	MaxInFlight     int      `toml:"max_in_flight"`
	CoordinateLimit float64  `toml:"coordinate_limit"`
	OriginX         *float64 `toml:"origin_x"`
	OriginY         *float64 `toml:"origin_y"`
	Step            float64  `toml:"step"`
	LogLevel        string   `toml:"log_level"`
	LogFile         string   `toml:"log_file"`
	Trace           string   `toml:"trace"`
}

// LoadFileConfig reads and parses a TOML config file
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/blotctl/config.toml, or the
// platform equivalent
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "blotctl", "config.toml")
	}
	return ""
}

// FileExists checks if a file exists at the given path
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFileConfig applies file values for flags that were not set explicitly
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if !s.linkChanged() {
		s.setString("port", fc.Port, &cfg.Port)
		s.setString("url", fc.URL, &cfg.URL)
	}
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("trace", fc.Trace, &cfg.Trace)

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("max-in-flight", fc.MaxInFlight, &cfg.MaxInFlight)

	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	s.setFloat("coordinate-limit", fc.CoordinateLimit, &cfg.CoordLimit)
	s.setFloat("step", fc.Step, &cfg.Step)
	s.setFloatPtr("origin-x", fc.OriginX, &cfg.OriginX)
	s.setFloatPtr("origin-y", fc.OriginY, &cfg.OriginY)

	s.setBool("no-ssl-verify", fc.NoSSLVerify, &cfg.NoSSLVerify)

	return nil
}

// ApplyEnvConfig applies BLOTCTL_* environment variables for flags that
// were not set explicitly. Returns an error for unparseable values.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	// An environment link of either kind replaces the one from the file
	if !s.linkChanged() {
		port, url := os.Getenv("BLOTCTL_PORT"), os.Getenv("BLOTCTL_URL")
		if port != "" || url != "" {
			cfg.Port, cfg.URL = port, url
		}
	}
	s.setString("username", os.Getenv("BLOTCTL_USERNAME"), &cfg.Username)
	s.setString("log-level", os.Getenv("BLOTCTL_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", os.Getenv("BLOTCTL_LOG_FILE"), &cfg.LogFile)
	s.setString("trace", os.Getenv("BLOTCTL_TRACE"), &cfg.Trace)

	if err := s.setIntFromString("baud", os.Getenv("BLOTCTL_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("max-in-flight", os.Getenv("BLOTCTL_MAX_IN_FLIGHT"), &cfg.MaxInFlight); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("BLOTCTL_TIMEOUT"), &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setFloatFromString("coordinate-limit", os.Getenv("BLOTCTL_COORDINATE_LIMIT"), &cfg.CoordLimit, false); err != nil {
		return err
	}
	if err := s.setFloatFromString("step", os.Getenv("BLOTCTL_STEP"), &cfg.Step, false); err != nil {
		return err
	}
	if err := s.setFloatFromString("origin-x", os.Getenv("BLOTCTL_ORIGIN_X"), &cfg.OriginX, true); err != nil {
		return err
	}
	if err := s.setFloatFromString("origin-y", os.Getenv("BLOTCTL_ORIGIN_Y"), &cfg.OriginY, true); err != nil {
		return err
	}

	s.setBoolFromString("no-ssl-verify", os.Getenv("BLOTCTL_NO_SSL_VERIFY"), &cfg.NoSSLVerify)

	return nil
}

//////////////////////////////////////////////////////////////
// Setter
//////////////////////////////////////////////////////////////

// configSetter applies values only when the matching flag was not changed
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// linkChanged reports whether a flag chose the serial port or the URL.
// Either one replaces both saved link settings.
func (s *configSetter) linkChanged() bool {
	return s.changed["port"] || s.changed["url"]
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloatPtr accepts zero, which is a meaningful coordinate
func (s *configSetter) setFloatPtr(flag string, value *float64, dst *float64) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64, allowZero bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f < 0 || (f == 0 && !allowZero) {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
