// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Print a frame trace recorded with --trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return printTrace(f, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}

// printTrace renders each record in file order
func printTrace(r io.Reader, out io.Writer) error {
	tr := trace.NewReader(r)
	var tx, rx, bad int

	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		ts := rec.Timestamp().Format("15:04:05.000")
		switch rec.Dir {
		case trace.Tx:
			tx++
		case trace.Rx:
			rx++
		}

		if rec.Err != "" {
			bad++
			fmt.Fprintf(out, "[%s] %s [ERROR] %s\n", ts, rec.Dir, rec.Err)
			continue
		}

		p, err := blot.ParsePacket(rec.Packet)
		if err != nil {
			bad++
			fmt.Fprintf(out, "[%s] %s [ERROR] %v (% X)\n", ts, rec.Dir, err, rec.Packet)
			continue
		}
		fmt.Fprintf(out, "[%s] %s %s (#%d) len=%d\n", ts, rec.Dir, blot.FormatMessageName(p.Msg), p.Index, len(p.Payload))
		fmt.Fprint(out, blot.FormatPayload(p))
	}

	fmt.Fprintf(out, "\n%d sent, %d received, %d errors\n", tx, rx, bad)
	return nil
}
