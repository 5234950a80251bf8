// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// blotctl - Blot drawing machine controller
//
// A CLI tool for sending drawing commands to a Blot pen plotter over a
// serial link and driving it interactively from the keyboard.

package main

import (
	"os"

	"github.com/Thermoquad/blotctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
