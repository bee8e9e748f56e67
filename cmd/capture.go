/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Bytes read from the port are written to the output file unchanged. The
capture runs until interrupted (Ctrl+C), until --duration has passed or
until the device goes away.

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  serialport capture /dev/ttyUSB0 data.log
  serialport capture /dev/ttyUSB0 output.txt --baud 9600
  serialport capture /dev/ttyUSB0 capture.log --console --duration 10m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		showConsole, _ := cmd.Flags().GetBool("console")
		duration, _ := cmd.Flags().GetDuration("duration")

		ctx, cancel := signalContext(cmd)
		defer cancel()

		port, err := openPort(ctx, args[0])
		if err != nil {
			return err
		}
		defer port.Close()

		file, err := os.OpenFile(args[1], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer file.Close()

		// Closing the port ends the copy with io.EOF
		stop := func() { port.Close() }
		if duration > 0 {
			timer := time.AfterFunc(duration, stop)
			defer timer.Stop()
		}
		go func() {
			<-ctx.Done()
			stop()
		}()

		var dst io.Writer = file
		if showConsole {
			dst = io.MultiWriter(file, cmd.OutOrStdout())
		}

		fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", port.Path(), args[1])
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

		start := time.Now()
		n, err := io.Copy(dst, port)
		fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", n, time.Since(start).Round(time.Millisecond))
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
}
