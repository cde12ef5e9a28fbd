// Package serial opens the link to the station: the ST-Link virtual COM
// port of the discovery board, or any USB-UART bridge wired to USART2.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Port is an open link. Flush discards unread input and untransmitted
// output, so a fresh session does not see replies meant for an old one.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Parity of the UART frame.
type Parity byte

const (
	ParityNone Parity = 'N'
	ParityEven Parity = 'E'
	ParityOdd  Parity = 'O'
)

// DefaultBaud is the station UART rate
const DefaultBaud = 115200

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string
	Baud   int
	Parity Parity

	// ReadTimeout bounds each Read; 0 blocks.
	ReadTimeout time.Duration
}

// DefaultConfig returns the 8N1 station link on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		Parity:      ParityNone,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate reports settings no port can be opened with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Device == "" {
		return errors.New("no serial device given")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	switch c.Parity {
	case ParityNone, ParityEven, ParityOdd:
	default:
		return fmt.Errorf("invalid parity %q", c.Parity)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout %v", c.ReadTimeout)
	}
	return nil
}
