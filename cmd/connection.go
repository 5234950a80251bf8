// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Thermoquad/blotctl/pkg/session"
	"github.com/Thermoquad/blotctl/pkg/trace"
	"github.com/Thermoquad/blotctl/pkg/transport"
)

// errNoPort is returned when no device is configured and none can be picked
var errNoPort = errors.New("either --port or --url must be specified")

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("BLOTCTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		// Fallback to regular input if stdin is not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// stdinIsTerminal reports whether a picker can be shown
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// OpenConnection opens either a serial or WebSocket link based on the
// configuration. Without a port, a picker of USB serial ports is shown when
// stdin is a terminal.
func OpenConnection(ctx context.Context) (transport.Transport, string, error) {
	if cfg.URL != "" {
		password := ""
		if cfg.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		ws, err := transport.DialWebSocket(ctx, cfg.URL, transport.WebSocketOptions{
			Username:      cfg.Username,
			Password:      password,
			SkipSSLVerify: cfg.NoSSLVerify,
		})
		if err != nil {
			return nil, "", err
		}
		logger.Info().Str("url", cfg.URL).Msg("websocket connected")
		return ws, fmt.Sprintf("WebSocket: %s", ws.URL()), nil
	}

	port := cfg.Port
	if port == "" {
		if !stdinIsTerminal() {
			return nil, "", errNoPort
		}
		picked, err := pickPort()
		if err != nil {
			return nil, "", err
		}
		port = picked
	}

	sp, err := transport.OpenSerial(port, cfg.Baud)
	if err != nil {
		return nil, "", err
	}
	logger.Info().Str("port", port).Int("baud", cfg.Baud).Msg("serial port opened")
	return sp, fmt.Sprintf("Serial: %s @ %d baud", sp.Name(), cfg.Baud), nil
}

// openSession connects and starts a Session with the configured tracer.
// The returned function closes the session and then the trace file.
func openSession(ctx context.Context) (*session.Session, string, func() error, error) {
	link, info, err := OpenConnection(ctx)
	if err != nil {
		return nil, "", nil, err
	}

	sc := cfg.SessionConfig(logger)

	var tw *trace.Writer
	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			link.Close()
			return nil, "", nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		tw = trace.NewWriter(f)
		sc.Tracer = tw
	}

	sess, err := session.New(link, sc)
	if err != nil {
		link.Close()
		if tw != nil {
			tw.Close()
		}
		return nil, "", nil, err
	}

	closeFn := func() error {
		err := sess.Close()
		if tw != nil {
			if cerr := tw.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}
	return sess, info, closeFn, nil
}
