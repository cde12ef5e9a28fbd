//go:build !wasm

package serial

import (
	"fmt"

	"github.com/tarm/serial"
)

// tarmPort is a Port on github.com/tarm/serial.
type tarmPort struct {
	*serial.Port
	device string
}

// Open opens cfg's device and drops whatever the station sent before the
// host attached.
func Open(cfg *Config) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.Parity(cfg.Parity),
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	p := &tarmPort{Port: port, device: cfg.Device}
	if err := p.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush serial port %s: %w", cfg.Device, err)
	}
	return p, nil
}

func (p *tarmPort) String() string { return p.device }
