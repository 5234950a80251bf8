// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
)

var penCmd = &cobra.Command{
	Use:       "pen up|down",
	Short:     "Raise or lower the pen",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		down, err := parseChoice(args[0], "down", "up")
		if err != nil {
			return err
		}
		return runOneShot(cmd, blot.Pen(down))
	},
}

func init() {
	rootCmd.AddCommand(penCmd)
}
