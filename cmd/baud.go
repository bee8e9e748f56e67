/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/allbin/serialport"
)

// baudCmd represents the baud command
var baudCmd = &cobra.Command{
	Use:   "baud <port> [rate]",
	Short: "Show or change the baud rate of a port",
	Long: `Without a rate, open the port and print the baud rate the driver reports.
With a rate, switch the open port to it and print the rate read back.

Examples:
  serialport baud /dev/ttyUSB0
  serialport baud /dev/ttyUSB0 57600`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate := 0
		if len(args) == 2 {
			var err error
			if rate, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("%w: %q is not a number", serialport.ErrInvalidBaudRate, args[1])
			}
			if err := serialport.ValidateBaudRate(rate); err != nil {
				return err
			}
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		port, err := openPort(ctx, args[0])
		if err != nil {
			return err
		}
		defer port.Close()

		if rate > 0 {
			if err := port.Update(ctx, serialport.UpdateOptions{BaudRate: rate}); err != nil {
				return fmt.Errorf("changing baud rate: %w", err)
			}
		}
		current, err := port.GetBaudRate(ctx)
		if err != nil {
			return fmt.Errorf("reading baud rate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d baud\n", port.Path(), current)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(baudCmd)
}
