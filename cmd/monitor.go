// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/blotctl/pkg/blot"
	"github.com/Thermoquad/blotctl/pkg/transport"
)

var monitorHex bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display frames received from the device",
	Long: `Continuously decode and display packets as they arrive on the link.

Nothing is sent to the device. With --hex, each raw chunk read from the link
is printed before the packets decoded from it.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorHex, "hex", false, "Also print raw bytes as hex")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	conn, connInfo, err := OpenConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "blotctl - Frame Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	// Unblock the read when interrupted
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return monitorStream(ctx, conn, out, monitorHex)
}

// monitorStream prints every frame read from r until it ends
func monitorStream(ctx context.Context, r io.Reader, out io.Writer, hex bool) error {
	decoder := blot.NewDecoder()
	stats := blot.NewStatistics()
	buf := make([]byte, 128)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if hex {
				fmt.Fprintf(out, "[%s] RAW %s\n", time.Now().Format("15:04:05.000"), blot.FormatHex(buf[:n], 0))
			}
			printFrames(out, decoder, stats, buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil || transport.Disconnected(err) {
				logger.Info().Msg("connection closed")
				fmt.Fprintf(out, "\n%s", stats.String())
				return nil
			}
			return err
		}
	}
}

func printFrames(out io.Writer, decoder *blot.Decoder, stats *blot.Statistics, chunk []byte) {
	for frame, err := range decoder.Frames(chunk) {
		if err != nil {
			stats.RecordReceived(err, nil)
			fmt.Fprintf(out, "[ERROR] %v\n", err)
			continue
		}

		p, err := blot.ParsePacket(frame)
		stats.RecordReceived(nil, err)
		if err != nil {
			fmt.Fprintf(out, "[ERROR] %v (% X)\n", err, frame)
			continue
		}
		fmt.Fprint(out, blot.FormatPacket(p))
	}
}
