// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Drive the Blot from the keyboard",
	Long: `Interactive keyboard control of the Blot.

On start the pen is raised, the motors are enabled, and the pen moves to the
configured origin. Commands are queued and acknowledged in order; the view
shows the last confirmed state with pending changes marked by an arrow.

Keys:
  arrows, w/a/s/d   Move by the step size
  g                 Go to coordinates (x,y)
  c                 Change the step size
  p / u             Toggle the pen / raise the pen
  m                 Toggle the motors
  o / O             Move to origin / set origin here
  q, Esc, Ctrl+C    Quit

Logs are written only to --log-file while the view is running.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationTUI: "true"},
	RunE:        runInteractive,
}

func init() {
	flags := interactiveCmd.Flags()
	flags.Float64Var(&cfg.Step, "step", cfg.Step, "Step size in mm for relative moves")
	flags.Float64Var(&cfg.OriginX, "origin-x", cfg.OriginX, "X of the start position in mm")
	flags.Float64Var(&cfg.OriginY, "origin-y", cfg.OriginY, "Y of the start position in mm")
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	sess, connInfo, closeSession, err := openSession(cmd.Context())
	if err != nil {
		return err
	}

	model := newInteractiveModel(sess, connInfo, cfg)
	final, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	// Outstanding requests resolve as closed; the link is released once
	closeErr := closeSession()

	if runErr != nil {
		return fmt.Errorf("interactive view failed: %w", runErr)
	}
	if m, ok := final.(interactiveModel); ok && m.fatal != nil {
		return fmt.Errorf("connection lost: %w", m.fatal)
	}
	if closeErr != nil {
		logger.Warn().Err(closeErr).Msg("closing link")
	}

	stats := sess.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Session ended\n%s", stats.String())
	return nil
}
