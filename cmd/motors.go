// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
)

var motorsCmd = &cobra.Command{
	Use:       "motors on|off",
	Short:     "Enable or disable the stepper motors",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enable, err := parseChoice(args[0], "on", "off")
		if err != nil {
			return err
		}
		return runOneShot(cmd, blot.Motors(enable))
	},
}

func init() {
	rootCmd.AddCommand(motorsCmd)
}
