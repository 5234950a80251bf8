// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// annotationTUI marks commands that own the terminal
const annotationTUI = "blotctl/tui"

var (
	// Resolved configuration; flags are bound directly to its fields
	cfg = DefaultConfig()

	configPath string

	logger    = zerolog.Nop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "blotctl",
	Short: "Blot drawing machine controller",
	Long: `blotctl - Command and control for the Blot pen plotter over a serial link.

Sends framed drawing commands (move, pen, motors, origin) and waits for the
device to acknowledge each one. Run "blotctl interactive" for keyboard
control, or use the one-shot commands from scripts.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

Settings are read from ` + "`$XDG_CONFIG_HOME/blotctl/config.toml`" + ` and BLOTCTL_*
environment variables; flags take precedence. For WebSocket authentication
the password is read from BLOTCTL_PASSWORD, or prompted interactively.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	// Serial connection flags
	flags.StringVarP(&cfg.Port, "port", "p", cfg.Port, "Serial port device")
	flags.IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringVarP(&cfg.URL, "url", "u", cfg.URL, "WebSocket URL (ws:// or wss://)")
	flags.StringVar(&cfg.Username, "username", cfg.Username, "Username for HTTP Basic auth")
	flags.BoolVar(&cfg.NoSSLVerify, "no-ssl-verify", cfg.NoSSLVerify, "Skip TLS certificate verification (wss:// only)")

	// Session flags
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Time to wait for each acknowledgement")
	flags.IntVar(&cfg.MaxInFlight, "max-in-flight", cfg.MaxInFlight, "Requests allowed on the wire at once")
	flags.Float64Var(&cfg.CoordLimit, "coordinate-limit", cfg.CoordLimit, "Largest accepted coordinate magnitude in mm")

	// Diagnostics
	flags.StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/blotctl/config.toml)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append logs to this file")
	flags.StringVar(&cfg.Trace, "trace", cfg.Trace, "Record every frame to a CBOR trace file")
}

// loadConfig layers the config file and environment under the flags, then
// sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	changed := make(map[string]bool)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = true
	})

	path := configPath
	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" && (configPath != "" || FileExists(path)) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	logger, logCloser, err = setupLogger(cfg.LogLevel, cfg.LogFile, cmd.Annotations[annotationTUI] != "")
	if err != nil {
		return err
	}
	logger.Debug().Str("config", path).Str("command", cmd.Name()).Msg("configuration loaded")
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
