/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/internal/tui/styles"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display modem status signals",
	Long: `Display the state of the incoming modem status lines.

Examples:
  serialport signals /dev/ttyUSB0
  serialport signals /dev/ttyUSB0 --watch --interval 50ms

Signal meanings:
  CTS - Clear To Send
  DSR - Data Set Ready
  DCD - Data Carrier Detect

With --watch the lines are polled until interrupted and every change is
printed with a timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, cancel := signalContext(cmd)
		defer cancel()

		port, err := openPort(ctx, args[0])
		if err != nil {
			return err
		}
		defer port.Close()

		status, err := port.Get(ctx)
		if err != nil {
			return fmt.Errorf("reading modem signals: %w", err)
		}

		out := cmd.OutOrStdout()
		if !watch {
			printSignals(out, port.Path(), status)
			return nil
		}
		return watchSignals(ctx, out, port, status, interval)
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().BoolP("watch", "w", false, "Keep polling and print changes")
	signalsCmd.Flags().Duration("interval", 100*time.Millisecond, "Polling interval for --watch")
}

func printSignals(out io.Writer, path string, s serialport.RemoteStatus) {
	fmt.Fprintf(out, "Modem Signals for %s:\n\n", path)
	fmt.Fprintf(out, "  CTS (Clear To Send):       %s\n", formatSignalState(s.CTS))
	fmt.Fprintf(out, "  DSR (Data Set Ready):      %s\n", formatSignalState(s.DSR))
	fmt.Fprintf(out, "  DCD (Data Carrier Detect): %s\n", formatSignalState(s.DCD))
}

func formatSignalState(state bool) string {
	if state {
		return styles.SignalOnStyle.Render("HIGH")
	}
	return styles.SignalOffStyle.Render("LOW")
}

func signalLine(s serialport.RemoteStatus) string {
	return fmt.Sprintf("%s %s %s", styles.Signal("CTS", s.CTS), styles.Signal("DSR", s.DSR), styles.Signal("DCD", s.DCD))
}

func watchSignals(ctx context.Context, out io.Writer, port *serialport.Port, last serialport.RemoteStatus, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", serialport.ErrInvalidArgument)
	}
	fmt.Fprintf(out, "Watching %s, press Ctrl+C to stop\n", port.Path())
	fmt.Fprintf(out, "%s  %s\n", time.Now().Format("15:04:05.000"), signalLine(last))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		status, err := port.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading modem signals: %w", err)
		}
		if status != last {
			fmt.Fprintf(out, "%s  %s\n", time.Now().Format("15:04:05.000"), signalLine(status))
			last = status
		}
	}
}
