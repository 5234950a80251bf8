// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
)

var originCmd = &cobra.Command{
	Use:   "origin",
	Short: "Set or return to the device origin",
}

var originSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Make the current pen position the origin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, blot.OriginSet())
	},
}

var originMoveCmd = &cobra.Command{
	Use:     "move",
	Aliases: []string{"goto"},
	Short:   "Move the pen towards the origin",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, blot.OriginGoto())
	},
}

func init() {
	originCmd.AddCommand(originSetCmd, originMoveCmd)
	rootCmd.AddCommand(originCmd)
}
