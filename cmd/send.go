/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/serialport/internal/tui/components"
	"github.com/allbin/serialport/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <port> [data]",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port.

Data can be provided as:
- Command line argument: serialport send /dev/ttyUSB0 "Hello World"
- From stdin (pipe): echo "test data" | serialport send /dev/ttyUSB0
- Interactive prompt: serialport send /dev/ttyUSB0

With --hex the data is read as hex digits; spaces, colons and 0x prefixes
are ignored. With --drain the command waits until the device has
transmitted every byte before closing the port.

Example usage:
  serialport send /dev/ttyUSB0 "AT+GMR" --newline
  serialport send /dev/ttyUSB0 "02 06 00 03" --hex --drain`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		drain, _ := cmd.Flags().GetBool("drain")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		var text string
		if len(args) == 2 {
			text = args[1]
		} else {
			var err error
			if text, err = readInput(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
		}

		data, err := encodePayload(text, hexMode, addNewline)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return sendData(ctx, cmd.OutOrStdout(), portPath, data, drain)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Append CRLF to the data (ignored with --hex)")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().BoolP("drain", "d", false, "Wait until the data has left the device before closing")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Give up after this long (0 waits forever)")
}

// readInput takes piped stdin as is, or prompts for one line on a terminal
func readInput(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprint(out, styles.InfoStyle.Render("Enter data to send: "))
			scanner := bufio.NewScanner(in)
			if scanner.Scan() {
				return scanner.Text(), nil
			}
			return "", scanner.Err()
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func encodePayload(text string, hexMode, newline bool) ([]byte, error) {
	if hexMode {
		data, err := components.ParseHex(text)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return data, nil
	}
	if text == "" {
		return nil, fmt.Errorf("nothing to send")
	}
	data := []byte(text)
	if newline {
		data = append(data, '\r', '\n')
	}
	return data, nil
}

func sendData(ctx context.Context, out io.Writer, portPath string, data []byte, drain bool) error {
	fmt.Fprintf(out, "%s Opening %s...\n", styles.InfoStyle.Render("⚡"), portPath)
	port, err := openPort(ctx, portPath)
	if err != nil {
		return err
	}
	defer port.Close()

	n, err := port.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	if drain {
		if err := port.Drain(ctx); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}

	fmt.Fprintf(out, "%s Sent %d bytes\n", styles.SignalOnStyle.Render("✓"), n)
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	fmt.Fprintf(out, "%s %s\n", styles.MutedStyle.Render("HEX:"), components.HexString(preview))
	fmt.Fprintf(out, "%s %s\n", styles.MutedStyle.Render("ASCII:"), components.PrintableASCII(preview))
	return nil
}
