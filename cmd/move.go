// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
)

var goCmd = &cobra.Command{
	Use:   "go X Y",
	Short: "Move the pen to an absolute position in millimetres",
	Long: `Move the pen to (X, Y) and wait for the device to acknowledge.

Coordinates are absolute millimetres. Values beyond --coordinate-limit are
rejected before anything is sent.`,
	Args: cobra.ExactArgs(2),
	RunE: runGo,
}

func init() {
	rootCmd.AddCommand(goCmd)
}

func parseCoordinates(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", ys)
	}
	return x, y, nil
}

func runGo(cmd *cobra.Command, args []string) error {
	x, y, err := parseCoordinates(args[0], args[1])
	if err != nil {
		return err
	}
	return runOneShot(cmd, blot.Move(x, y))
}
