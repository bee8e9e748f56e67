package serialport

import (
	"fmt"
	"strings"
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// ParseParity accepts none, odd, even, mark or space (case-insensitive)
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n", "":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	case "mark", "m":
		return ParityMark, nil
	case "space", "s":
		return ParitySpace, nil
	}
	return ParityNone, fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, s)
}

// StopBits represents the number of stop bits
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsOnePointFive:
		return "1.5"
	case StopBitsTwo:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", int(s))
	}
}

// ParseStopBits accepts "1", "1.5" or "2"
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1", "":
		return StopBitsOne, nil
	case "1.5":
		return StopBitsOnePointFive, nil
	case "2":
		return StopBitsTwo, nil
	}
	return StopBitsOne, fmt.Errorf("%w: unknown stop bits %q", ErrInvalidConfig, s)
}

// Config holds the local configuration of a serial port. DataBits, StopBits
// and Parity are fixed once the port is open; BaudRate can be changed with
// Update.
type Config struct {
	BaudRate int
	DataBits int
	StopBits StopBits
	Parity   Parity

	Lock   bool // exclusive access; a second opener gets ErrDeviceInUse
	RTSCTS bool // hardware flow control
	XOn    bool // software flow control on output
	XOff   bool // software flow control on input
	XAny   bool // any character restarts output
	HUPCL  bool // drop modem lines on last close

	// Control line states applied right after open
	RTS bool
	DTR bool
	BRK bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: StopBitsOne,
		Parity:   ParityNone,
		Lock:     true,
		HUPCL:    true,
		RTS:      true,
		DTR:      true,
	}
}

// NewConfig applies opts on top of DefaultConfig
func NewConfig(opts ...Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// Validate checks every field against the supported ranges
func (c Config) Validate() error {
	if err := ValidateBaudRate(c.BaudRate); err != nil {
		return err
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits %d", ErrInvalidConfig, c.DataBits)
	}
	if c.StopBits < StopBitsOne || c.StopBits > StopBitsTwo {
		return fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, int(c.StopBits))
	}
	if c.Parity < ParityNone || c.Parity > ParitySpace {
		return fmt.Errorf("%w: parity %d", ErrInvalidConfig, int(c.Parity))
	}
	return nil
}

// ValidateBaudRate rejects non-positive and non-standard rates
func ValidateBaudRate(rate int) error {
	if rate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBaudRate, rate)
	}
	if _, ok := baudRates[rate]; !ok {
		return fmt.Errorf("%w: %d is not a supported rate", ErrInvalidBaudRate, rate)
	}
	return nil
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if err := ValidateBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits
func WithStopBits(bits StopBits) Option {
	return func(c *Config) error {
		if bits < StopBitsOne || bits > StopBitsTwo {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithLock controls exclusive access to the device
func WithLock(lock bool) Option {
	return func(c *Config) error {
		c.Lock = lock
		return nil
	}
}

// WithRTSCTS enables hardware flow control
func WithRTSCTS(enabled bool) Option {
	return func(c *Config) error {
		c.RTSCTS = enabled
		return nil
	}
}

// WithSoftwareFlowControl sets the XON/XOFF/XANY input flags
func WithSoftwareFlowControl(xon, xoff, xany bool) Option {
	return func(c *Config) error {
		c.XOn, c.XOff, c.XAny = xon, xoff, xany
		return nil
	}
}

// WithHUPCL controls whether modem lines drop on close
func WithHUPCL(enabled bool) Option {
	return func(c *Config) error {
		c.HUPCL = enabled
		return nil
	}
}

// WithInitialRTS sets the RTS state applied when the port opens
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.RTS = state
		return nil
	}
}

// WithInitialDTR sets the DTR state applied when the port opens
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.DTR = state
		return nil
	}
}

// WithInitialBreak sets the break state applied when the port opens
func WithInitialBreak(state bool) Option {
	return func(c *Config) error {
		c.BRK = state
		return nil
	}
}
