/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialport"
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <port>",
	Short: "Drive the RTS, DTR and break output lines",
	Long: `Set the outgoing control lines of a serial port.

Only the lines named by a flag are changed. Because the lines usually follow
the port's lifetime, --hold keeps the port open for a while so the device
can react before the port is closed.

Examples:
  serialport set /dev/ttyUSB0 --dtr=false --rts=true
  serialport set /dev/ttyUSB0 --dtr=false --hold 100ms   # pulse reset on many boards
  serialport set /dev/ttyUSB0 --brk --hold 250ms`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lines serialport.ControlLines
		var changed []string
		for _, line := range []struct {
			name string
			dst  **bool
		}{{"rts", &lines.RTS}, {"dtr", &lines.DTR}, {"brk", &lines.BRK}} {
			if !cmd.Flags().Changed(line.name) {
				continue
			}
			v, _ := cmd.Flags().GetBool(line.name)
			*line.dst = serialport.Line(v)
			changed = append(changed, fmt.Sprintf("%s=%s", strings.ToUpper(line.name), formatSignalState(v)))
		}
		if len(changed) == 0 {
			return fmt.Errorf("%w: pass at least one of --rts, --dtr, --brk", serialport.ErrInvalidArgument)
		}
		hold, _ := cmd.Flags().GetDuration("hold")

		ctx, cancel := signalContext(cmd)
		defer cancel()

		port, err := openPort(ctx, args[0])
		if err != nil {
			return err
		}
		defer port.Close()

		if err := port.Set(ctx, lines); err != nil {
			return fmt.Errorf("setting control lines: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", port.Path(), strings.Join(changed, " "))

		if hold > 0 {
			select {
			case <-time.After(hold):
			case <-ctx.Done():
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)

	setCmd.Flags().Bool("rts", false, "Request To Send state")
	setCmd.Flags().Bool("dtr", false, "Data Terminal Ready state")
	setCmd.Flags().Bool("brk", false, "Break condition")
	setCmd.Flags().Duration("hold", 0, "Keep the port open this long after setting the lines")
}
