/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/serialmock"
)

var logger = zerolog.Nop()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialport",
	Short: "Inspect and talk to serial ports",
	Long: `serialport lists, configures and talks to serial devices.

Line settings are shared by every subcommand and can come from flags,
SERIALPORT_* environment variables or a config file:

  serialport list --table
  serialport send /dev/ttyUSB0 "AT" --newline
  SERIALPORT_BAUD=9600 serialport listen /dev/ttyACM0
  serialport --mock-fixtures ports.toml listen /dev/ROBOT`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		return initLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.serialport.yaml)")
	flags.IntP("baud", "b", 115200, "Baud rate")
	flags.Int("databits", 8, "Data bits: 5, 6, 7 or 8")
	flags.String("stopbits", "1", "Stop bits: 1, 1.5 or 2")
	flags.String("parity", "none", "Parity: none, odd, even, mark, space")
	flags.Bool("rtscts", false, "Enable RTS/CTS hardware flow control")
	flags.Bool("no-lock", false, "Open without taking an exclusive lock")
	flags.String("log-level", "warn", "Log level: trace, debug, info, warn, error")
	flags.String("mock-fixtures", "", "Serve ports from a TOML fixture file instead of real devices")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	viper.SetEnvPrefix("SERIALPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".serialport")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func initLogger() error {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", viper.GetString("log-level"), err)
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
	if f := viper.ConfigFileUsed(); f != "" {
		logger.Debug().Str("file", f).Msg("using config file")
	}
	return nil
}

// portConfig builds the line settings from flags, environment and config file
func portConfig() (serialport.Config, error) {
	stopBits, err := serialport.ParseStopBits(viper.GetString("stopbits"))
	if err != nil {
		return serialport.Config{}, err
	}
	parity, err := serialport.ParseParity(viper.GetString("parity"))
	if err != nil {
		return serialport.Config{}, err
	}
	return serialport.NewConfig(
		serialport.WithBaudRate(viper.GetInt("baud")),
		serialport.WithDataBits(viper.GetInt("databits")),
		serialport.WithStopBits(stopBits),
		serialport.WithParity(parity),
		serialport.WithRTSCTS(viper.GetBool("rtscts")),
		serialport.WithLock(!viper.GetBool("no-lock")),
	)
}

// newBinding returns the system binding, or a fixture-backed mock when
// --mock-fixtures is set
func newBinding() (serialport.Binding, error) {
	fixtures := viper.GetString("mock-fixtures")
	if fixtures == "" {
		return serialport.NewSystemBinding(logger), nil
	}
	reg := serialmock.NewRegistry()
	paths, err := serialmock.LoadFixtures(reg, fixtures)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("file", fixtures).Strs("ports", paths).Msg("using mock ports")
	return reg.NewBinding(), nil
}

// newPort prepares a port without opening it
func newPort(path string) (*serialport.Port, error) {
	cfg, err := portConfig()
	if err != nil {
		return nil, err
	}
	binding, err := newBinding()
	if err != nil {
		return nil, err
	}
	return serialport.NewPort(binding, path, cfg,
		serialport.WithLogger(logger),
		serialport.WithDisconnectHandler(func(err error) {
			logger.Error().Err(err).Str("path", path).Msg("device disconnected")
		}),
	), nil
}

// openPort prepares and opens a port
func openPort(ctx context.Context, path string) (*serialport.Port, error) {
	port, err := newPort(path)
	if err != nil {
		return nil, err
	}
	if err := port.Open(ctx); err != nil {
		return nil, explainOpenError(err)
	}
	return port, nil
}

func explainOpenError(err error) error {
	switch {
	case errors.Is(err, serialport.ErrDeviceInUse):
		return fmt.Errorf("%w (another program holds the port, try --no-lock to share it)", err)
	case errors.Is(err, serialport.ErrPermissionDenied):
		return fmt.Errorf("%w (add yourself to the dialout group)", err)
	}
	return err
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
