package serialport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// baudRates maps supported integer rates to termios speed constants
var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	speed, ok := baudRates[rate]
	if !ok {
		return 0, ErrInvalidBaudRate
	}
	return speed, nil
}

// baudRateFromSpeed is the inverse of getBaudRate
func baudRateFromSpeed(speed uint32) (int, bool) {
	for rate, s := range baudRates {
		if s == speed {
			return rate, true
		}
	}
	return 0, false
}

var dataBitsFlags = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

// makeRaw fills termios for raw, non-canonical I/O according to config.
// Linux has no 1.5 stop bit setting, it is programmed as 2.
func makeRaw(termios *unix.Termios, config Config) error {
	speed, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	size, ok := dataBitsFlags[config.DataBits]
	if !ok {
		return ErrInvalidConfig
	}

	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cflag = unix.CREAD | unix.CLOCAL | size

	if config.StopBits != StopBitsOne {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}
	if config.Parity != ParityNone {
		termios.Iflag |= unix.INPCK
	}

	if config.RTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}
	if config.HUPCL {
		termios.Cflag |= unix.HUPCL
	}
	if config.XOn {
		termios.Iflag |= unix.IXON
	}
	if config.XOff {
		termios.Iflag |= unix.IXOFF
	}
	if config.XAny {
		termios.Iflag |= unix.IXANY
	}

	// Readiness drives the I/O loop, the driver returns as soon as one byte is there
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	setSpeed(termios, speed)
	return nil
}

func setSpeed(termios *unix.Termios, speed uint32) {
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | speed
	termios.Ispeed = speed
	termios.Ospeed = speed
}

// configurePort applies config to fd
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}
	if err := makeRaw(termios, config); err != nil {
		return err
	}
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

func updateBaudRate(fd int, rate int) error {
	speed, err := getBaudRate(rate)
	if err != nil {
		return err
	}
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}
	setSpeed(termios, speed)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

func readBaudRate(fd int) (int, error) {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return 0, fmt.Errorf("failed to get termios: %w", err)
	}
	rate, ok := baudRateFromSpeed(termios.Cflag & unix.CBAUD)
	if !ok {
		return 0, fmt.Errorf("unknown termios speed %#x", termios.Cflag&unix.CBAUD)
	}
	return rate, nil
}

// getModemStatus retrieves modem control signals using unix package
func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// setModemLine raises or lowers one TIOCM_* line
func setModemLine(fd int, line int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, line)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, line)
}

func setBreak(fd int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCSBRK, 0)
	}
	return unix.IoctlSetInt(fd, unix.TIOCCBRK, 0)
}

func remoteStatusFromTIOCM(status int) RemoteStatus {
	return RemoteStatus{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		DCD: status&unix.TIOCM_CAR != 0,
	}
}
