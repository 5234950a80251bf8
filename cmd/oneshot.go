// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
)

// runOneShot sends a single command and waits for its acknowledgement
func runOneShot(cmd *cobra.Command, c blot.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sess, info, closeSession, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession()

	logger.Info().Str("connection", info).Stringer("command", c).Msg("sending")

	resp, err := sess.Do(ctx, c)
	if err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: ok (#%d)\n", c, resp.ID)
	if len(resp.Data) > 0 {
		fmt.Fprintf(out, "  Data: %s\n", blot.FormatHex(resp.Data, 0))
	}
	return nil
}

// parseChoice maps one of two words to a bool
func parseChoice(arg, yes, no string) (bool, error) {
	switch strings.ToLower(arg) {
	case yes:
		return true, nil
	case no:
		return false, nil
	}
	return false, fmt.Errorf("expected %q or %q, got %q", yes, no, arg)
}
